package attendance

import "college/internal/user"

// ApplyMark returns a copy of s with one more lecture counted for subject.
// An absence counts towards totalDays only, so totalDays >= presentDays >= 0 always holds.
func ApplyMark(s user.Summary, subject string, present bool) user.Summary {
	out := make(user.Summary, len(s), len(s)+1)
	copy(out, s)

	idx := -1
	for i := range out {
		if out[i].Subject == subject {
			idx = i
			break
		}
	}
	if idx < 0 {
		out = append(out, user.SubjectSummary{Subject: subject})
		idx = len(out) - 1
	}
	out[idx].TotalDays++
	if present {
		out[idx].PresentDays++
	}
	return out
}
