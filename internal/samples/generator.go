package samples

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/doccheck/internal/domain/model"
	"github.com/okian/doccheck/pkg/logger"
)

// Expected verdicts.
const (
	StatusVerified = string(model.Verified)
	StatusFailed   = string(model.Failed)
)

// Mismatch kinds planted into one document of a person.
const (
	MismatchNone    = ""
	MismatchName    = "name"
	MismatchDOB     = "dob"
	MismatchPhone   = "phone"
	MismatchPAN     = "pan"
	MismatchAadhaar = "aadhaar"
)

var mismatchKinds = []string{MismatchName, MismatchDOB, MismatchPhone, MismatchPAN, MismatchAadhaar}

var (
	firstNames = []string{"Arjun", "Priya", "Rahul", "Ananya", "Vikram", "Meera", "Karthik", "Divya", "Sanjay", "Lakshmi"}
	lastNames  = []string{"Mehta", "Sharma", "Iyer", "Reddy", "Nair", "Kulkarni", "Banerjee", "Chopra", "Pillai", "Joshi"}
	streets    = []string{"MG Road", "Park Street", "Linking Road", "Anna Salai", "Residency Road", "FC Road"}
	cities     = []string{"Bangalore", "Kolkata", "Mumbai", "Chennai", "Pune", "Hyderabad"}
	impostors  = []string{"Oluwaseun Fitzgerald", "Xavier Quintero Lundqvist", "Bartholomew Okonkwo"}

	dateLayouts = []string{"02/01/2006", "2006-01-02", "02-01-2006", "2 Jan 2006", "02.01.2006"}
)

// Constants for random generation.
const (
	randomFloatDivisor = 1000000
	minDocuments       = 2
	maxDocuments       = 3
	minBirthYear       = 1950
	birthYearRange     = 55
)

// getRandomInt returns a random int in [0, n) using crypto/rand.
func getRandomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	return float64(getRandomInt(randomFloatDivisor)) / float64(randomFloatDivisor)
}

type identity struct {
	name    string
	father  string
	dob     time.Time
	address string
	phone   string
	pan     string
	aadhaar string
}

// generator builds persons from an injectable source of randomness.
type generator struct {
	intn  func(n int) int
	float func() float64
}

func newGenerator() *generator {
	return &generator{intn: getRandomInt, float: getRandomFloat}
}

func (g *generator) pick(list []string) string { return list[g.intn(len(list))] }

func (g *generator) digits(n int, first string) string {
	var b strings.Builder
	b.WriteString(first)
	for b.Len() < n {
		b.WriteByte(byte('0' + g.intn(10)))
	}
	return b.String()
}

func (g *generator) letters(n int) string {
	var b strings.Builder
	for range n {
		b.WriteByte(byte('A' + g.intn(26)))
	}
	return b.String()
}

func (g *generator) identity() identity {
	last := g.pick(lastNames)
	return identity{
		name:    g.pick(firstNames) + " " + last,
		father:  g.pick(firstNames) + " " + last,
		dob:     time.Date(minBirthYear+g.intn(birthYearRange), time.Month(1+g.intn(12)), 1+g.intn(28), 0, 0, 0, 0, time.UTC),
		address: fmt.Sprintf("%d %s, %s", 1+g.intn(200), g.pick(streets), g.pick(cities)),
		phone:   g.digits(10, g.pick([]string{"9", "8", "7"})),
		pan:     g.letters(5) + g.digits(4, "") + g.letters(1),
		aadhaar: g.digits(12, g.pick([]string{"2", "3", "4", "5", "6", "7", "8", "9"})),
	}
}

// nameVariant writes a name the way different issuers print it.
func (g *generator) nameVariant(s string) string {
	switch g.intn(3) {
	case 0:
		return strings.ToUpper(s)
	case 1:
		return strings.ReplaceAll(s, " ", "  ")
	default:
		return s
	}
}

func (g *generator) phoneVariant(p string) string {
	switch g.intn(3) {
	case 0:
		return "+91 " + p[:5] + " " + p[5:]
	case 1:
		return "0" + p
	default:
		return p
	}
}

func (g *generator) aadhaarVariant(a string) string {
	if g.intn(2) == 0 {
		return a[:4] + " " + a[4:8] + " " + a[8:]
	}
	return a
}

func (g *generator) documents(id identity, count int) []Document {
	docs := make([]Document, count)
	for i := range docs {
		fields := map[string]string{
			string(model.FullName):        g.nameVariant(id.name),
			string(model.FatherName):      g.nameVariant(id.father),
			string(model.DateOfBirth):     id.dob.Format(g.pick(dateLayouts)),
			string(model.CompleteAddress): id.address,
			string(model.PhoneNumber):     g.phoneVariant(id.phone),
		}
		switch i {
		case 0:
			fields[string(model.PANNumber)] = id.pan
		case 1:
			fields[string(model.AadhaarNumber)] = g.aadhaarVariant(id.aadhaar)
		}
		if g.intn(2) == 0 {
			fields[string(model.CompleteAddress)] = strings.ToUpper(id.address)
		}
		docs[i] = Document{Fields: fields}
	}
	return docs
}

// plant makes the documents disagree in the given way.
func (g *generator) plant(docs []Document, kind string, id identity) {
	switch kind {
	case MismatchName:
		docs[1].Fields[string(model.FullName)] = g.pick(impostors)
	case MismatchDOB:
		docs[1].Fields[string(model.DateOfBirth)] = id.dob.AddDate(1, 0, 0).Format(g.pick(dateLayouts))
	case MismatchPhone:
		other := id.phone[:9] + string(byte('0'+(id.phone[9]-'0'+1)%10))
		docs[1].Fields[string(model.PhoneNumber)] = other
	case MismatchPAN:
		docs[0].Fields[string(model.PANNumber)] = id.pan[:4] + id.pan[5:]
	case MismatchAadhaar:
		docs[1].Fields[string(model.AadhaarNumber)] = id.aadhaar[:11]
	}
}

// person generates one person. With probability rate one document is made
// to conflict and the expected verdict is FAILED.
func (g *generator) person(personID string, rate float64) Person {
	id := g.identity()
	docs := g.documents(id, minDocuments+g.intn(maxDocuments-minDocuments+1))

	p := Person{PersonID: personID, Documents: docs, Expected: StatusVerified}
	if g.float() < rate {
		p.Mismatch = mismatchKinds[g.intn(len(mismatchKinds))]
		g.plant(docs, p.Mismatch, id)
		p.Expected = StatusFailed
	}
	return p
}

// generatePersons creates the configured number of persons with unique ids.
func generatePersons(ctx context.Context, config *Config, stats *Stats) ([]Person, error) {
	logger.Get().Info(ctx, "generating persons with unique ids", logger.Int("numPersons", config.NumPersons))

	g := newGenerator()
	persons := make([]Person, 0, config.NumPersons)
	for range config.NumPersons {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		persons = append(persons, g.person(uuid.NewString(), config.MismatchRate))
	}

	stats.PersonsGenerated = len(persons)
	logger.Get().Info(ctx, "generated persons successfully", logger.Int("count", len(persons)))
	return persons, nil
}
