package interview

import "strings"

// LastSpeaker returns the speaker of the final transcript turn, or "" for
// an empty transcript. Turn-taking guards are derived from this rather
// than a separate sequence token, so a retried request observes the
// already-persisted state instead of advancing the session twice.
func LastSpeaker(transcript []Turn) Speaker {
	if len(transcript) == 0 {
		return ""
	}
	return transcript[len(transcript)-1].Speaker
}

// CountQuestions returns the number of AI turns in the transcript.
func CountQuestions(transcript []Turn) int {
	n := 0
	for _, t := range transcript {
		if t.Speaker == SpeakerAI {
			n++
		}
	}
	return n
}

// RenderTranscript produces the role-tagged rendering sent to the
// language-model providers:
//
//	Interviewer: ...
//	Candidate: ...
func RenderTranscript(transcript []Turn) string {
	if len(transcript) == 0 {
		return ""
	}

	var b strings.Builder
	for i, t := range transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		if t.Speaker == SpeakerAI {
			b.WriteString("Interviewer: ")
		} else {
			b.WriteString("Candidate: ")
		}
		b.WriteString(t.Text)
	}
	return b.String()
}
