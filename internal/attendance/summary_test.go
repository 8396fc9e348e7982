package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"college/internal/user"
)

func TestApplyMark(t *testing.T) {
	var s user.Summary
	s = ApplyMark(s, "Maths", true)
	s = ApplyMark(s, "Maths", false)
	s = ApplyMark(s, "Physics", false)
	s = ApplyMark(s, "Maths", true)

	assert.Equal(t, user.Summary{
		{Subject: "Maths", PresentDays: 2, TotalDays: 3},
		{Subject: "Physics", PresentDays: 0, TotalDays: 1},
	}, s)
}

func TestApplyMarkDoesNotAliasInput(t *testing.T) {
	in := user.Summary{{Subject: "Maths", PresentDays: 1, TotalDays: 1}}
	out := ApplyMark(in, "Maths", true)
	assert.Equal(t, 1, in[0].TotalDays)
	assert.Equal(t, 2, out[0].TotalDays)
}

func TestRecordMark(t *testing.T) {
	var r Record
	assert.NoError(t, r.Mark("s1", true))
	assert.NoError(t, r.Mark("s2", false))
	assert.ErrorIs(t, r.Mark("s1", false), ErrAlreadyMarked)
	assert.ErrorIs(t, r.Mark("s2", true), ErrAlreadyMarked)
	assert.Equal(t, []string{"s1"}, []string(r.PresentStudents))
	assert.Equal(t, []string{"s2"}, []string(r.AbsentStudents))
}
