// Package fakedata generates throwaway input values for UI tests.
package fakedata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var emailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "test.com"}

// Generator produces random test data from its own source.
// Not safe for concurrent use.
type Generator struct {
	rnd *rand.Rand
	log *logger.Logger
}

// New creates a Generator seeded from seed.
func New(seed int64, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed)), log: log}
}

// NewRandom creates a Generator seeded from the clock.
func NewRandom(log *logger.Logger) *Generator {
	return New(time.Now().UnixNano(), log)
}

// String returns n alphanumeric characters.
func (g *Generator) String(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[g.rnd.Intn(len(alphanumeric))]
	}
	g.log.Debug("Generated string", logger.Fields{"value": string(b)})
	return string(b)
}

// Email returns test_<6 lowercase alphanumerics>@<common domain>.
func (g *Generator) Email() string {
	const lower = "abcdefghijklmnopqrstuvwxyz0123456789"
	local := make([]byte, 6)
	for i := range local {
		local[i] = lower[g.rnd.Intn(len(lower))]
	}
	email := fmt.Sprintf("test_%s@%s", local, emailDomains[g.rnd.Intn(len(emailDomains))])
	g.log.Debug("Generated email", logger.Fields{"value": email})
	return email
}

// Phone returns a number formatted NNN-NNN-NNNN with no leading zeros
// in any group.
func (g *Generator) Phone() string {
	phone := fmt.Sprintf("%d-%d-%d", 100+g.rnd.Intn(900), 100+g.rnd.Intn(900), 1000+g.rnd.Intn(9000))
	g.log.Debug("Generated phone number", logger.Fields{"value": phone})
	return phone
}

// Date returns a time between Jan 1 of startYear and Dec 31 of endYear
// (UTC). The years are swapped when given in reverse order.
func (g *Generator) Date(startYear, endYear int) time.Time {
	if endYear < startYear {
		startYear, endYear = endYear, startYear
	}
	start := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	secs := g.rnd.Int63n(end.Unix() - start.Unix() + 1)
	date := time.Unix(start.Unix()+secs, 0).UTC()
	g.log.Debug("Generated date", logger.Fields{"value": date.Format(time.RFC3339)})
	return date
}
