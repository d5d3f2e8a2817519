package service

import (
	"math"
	"sort"

	"github.com/whisperstudio/chat-backend/internal/models"
)

const (
	// DefaultWaitMinutes is returned when no latency sample exists.
	DefaultWaitMinutes = 15
	// maxSampleMinutes discards overnight gaps that say nothing about
	// live response time.
	maxSampleMinutes = 24 * 60
)

// EstimateWaitMinutes predicts how long a human takes to first respond
// to a user message, as the median latency between each user message and
// the next admin message in the same session. Median, not mean: one slow
// night would skew an average, and the median reads directly as "half of
// users waited at most this long". Input order does not matter.
func EstimateWaitMinutes(messages []models.Message) int {
	bySession := map[string][]models.Message{}
	for _, m := range messages {
		if m.SessionID == "" {
			continue
		}
		bySession[m.SessionID] = append(bySession[m.SessionID], m)
	}

	var samples []float64
	for _, msgs := range bySession {
		sort.Slice(msgs, func(i, j int) bool {
			if msgs[i].SentAt.Equal(msgs[j].SentAt) {
				return msgs[i].Seq < msgs[j].Seq
			}
			return msgs[i].SentAt.Before(msgs[j].SentAt)
		})
		for i, m := range msgs {
			if m.Sender != models.SenderUser {
				continue
			}
			for j := i + 1; j < len(msgs); j++ {
				if msgs[j].Sender != models.SenderAdmin {
					continue
				}
				minutes := msgs[j].SentAt.Sub(m.SentAt).Minutes()
				if minutes >= 0 && minutes < maxSampleMinutes {
					samples = append(samples, minutes)
				}
				break
			}
		}
	}

	if len(samples) == 0 {
		return DefaultWaitMinutes
	}

	sort.Float64s(samples)
	mid := len(samples) / 2
	median := samples[mid]
	if len(samples)%2 == 0 {
		median = (samples[mid-1] + samples[mid]) / 2
	}
	if est := int(math.Round(median)); est > 1 {
		return est
	}
	return 1
}
