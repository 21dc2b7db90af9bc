// Contention probe: fires concurrent solicit requests for the SAME
// psychologist and instant and reports how many were accepted. With the
// slot lock and the conditional slot write in place, exactly one request
// should ever succeed.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type solicitRequest struct {
	PatientID      string    `json:"patient_id"`
	PsychologistID string    `json:"psychologist_id"`
	Date           time.Time `json:"date"`
}

func main() {
	log.SetFlags(log.LstdFlags)

	baseURL := flag.String("api", "http://127.0.0.1:8080", "api-server base URL")
	psychologistID := flag.String("psychologist", "", "psychologist UUID (required)")
	dateStr := flag.String("date", "", "slot instant, RFC3339 (required)")
	patientsCSV := flag.String("patients", "", "comma-separated patient UUIDs (required)")
	workers := flag.Int("workers", 20, "concurrent requests")
	flag.Parse()

	if *psychologistID == "" || *dateStr == "" || *patientsCSV == "" {
		flag.Usage()
		log.Fatal("psychologist, date and patients are required")
	}

	date, err := time.Parse(time.RFC3339, *dateStr)
	if err != nil {
		log.Fatalf("invalid date: %v", err)
	}

	patients := splitCSV(*patientsCSV)
	if len(patients) == 0 {
		log.Fatal("at least one patient id is required")
	}

	var success, conflict, failed int64
	client := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			body, _ := json.Marshal(solicitRequest{
				PatientID:      patients[n%len(patients)],
				PsychologistID: *psychologistID,
				Date:           date,
			})

			resp, err := client.Post(*baseURL+"/appointments", "application/json", bytes.NewReader(body))
			if err != nil {
				atomic.AddInt64(&failed, 1)
				return
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)

			switch {
			case resp.StatusCode == http.StatusCreated:
				atomic.AddInt64(&success, 1)
			case resp.StatusCode == http.StatusConflict:
				atomic.AddInt64(&conflict, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
		}(i)
	}
	wg.Wait()

	fmt.Printf("workers=%d took=%s\n", *workers, time.Since(start))
	fmt.Printf("created=%d conflict=%d failed=%d\n", success, conflict, failed)
	if success > 1 {
		fmt.Println("DOUBLE BOOKING DETECTED: more than one solicit succeeded")
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range bytes.Split([]byte(s), []byte(",")) {
		if v := string(bytes.TrimSpace(p)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
