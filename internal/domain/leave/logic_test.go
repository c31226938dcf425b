package leave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBusinessDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"single weekday", "2024-01-10", "2024-01-10", 1},
		{"full work week", "2024-01-08", "2024-01-12", 5},
		{"spanning one weekend", "2024-01-12", "2024-01-15", 2},
		{"weekend only", "2024-01-13", "2024-01-14", 0},
		{"saturday start", "2024-01-13", "2024-01-16", 2},
		{"two full weeks", "2024-01-08", "2024-01-19", 10},
		{"end before start", "2024-01-12", "2024-01-08", 0},
		{"single saturday", "2024-01-13", "2024-01-13", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BusinessDays(date(tt.start), date(tt.end)))
		})
	}
}

func TestBusinessDaysIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, 1, 8, 23, 59, 0, 0, time.UTC)
	end := time.Date(2024, 1, 12, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 5, BusinessDays(start, end))
}
