package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceMarks counts mark attempts by result: present, absent, duplicate.
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "college",
		Name:      "attendance_marks_total",
		Help:      "Attendance mark attempts by result.",
	}, []string{"result"})

	// LectureLookups counts current-lecture resolutions by outcome: found, none, no_timetable.
	LectureLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "college",
		Name:      "lecture_lookups_total",
		Help:      "Current lecture lookups by outcome.",
	}, []string{"outcome"})

	// SemesterSweeps counts expiry sweep runs by outcome: idle, expired, failed.
	SemesterSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "college",
		Name:      "semester_sweeps_total",
		Help:      "Semester expiry sweep runs by outcome.",
	}, []string{"outcome"})

	// NoticesSent counts notification mails handled by the worker.
	NoticesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "college",
		Name:      "notices_total",
		Help:      "Notification messages processed by type and result.",
	}, []string{"type", "result"})

	// SkippedSlots counts stored slots ignored because their time is malformed.
	SkippedSlots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "college",
		Name:      "timetable_skipped_slots_total",
		Help:      "Stored slots skipped during lecture resolution because of a malformed time.",
	})
)
