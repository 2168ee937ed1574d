// Package samples generates synthetic persons, submits them to a running
// service and checks every verdict against the generator's expectation.
package samples

import "time"

// Config holds configuration for a sample run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumPersons   int           // Number of persons to generate
	MismatchRate float64       // Fraction of persons given a conflicting document
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Output file for generated persons; empty skips saving
	Verbose      bool          // Log every unexpected verdict
}

// Document is one document of a generated person, in the /verify shape.
type Document struct {
	ID     string            `json:"id,omitempty"`
	Fields map[string]string `json:"fields"`
}

// Person is a generated person together with the verdict the service should reach.
type Person struct {
	PersonID  string     `json:"person_id"`
	Documents []Document `json:"documents"`

	Expected string `json:"-"`
	Mismatch string `json:"-"`
}

// VerifyResponse is the part of the verification record the run checks.
type VerifyResponse struct {
	PersonID            string                       `json:"person_id"`
	OverallStatus       string                       `json:"overall_status"`
	VerificationResults map[string]map[string]string `json:"verification_results"`
}

// Stats holds run statistics.
type Stats struct {
	PersonsGenerated int
	Submitted        int
	Verified         int
	Failed           int
	Unexpected       int
	Errors           int
	RecordsStored    int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
