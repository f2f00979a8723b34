package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/google/uuid"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

var URL, _ = os.LookupEnv("API_URL")
var PORT, _ = os.LookupEnv("API_PORT")
var apiURL = fmt.Sprintf("http://%s:%s/v1", URL, PORT)
var webhooksURL = apiURL + "/webhooks/transactions"
var transactionsURL = apiURL + "/transactions/"

const (
	workers  = 10
	duration = 30 * time.Second
	// chance that a worker redelivers an id it already sent
	duplicateRate = 0.3
	pollTimeout   = 2 * time.Minute
)

var currencies = []string{"USD", "EUR", "BRL"}

type Webhook struct {
	TransactionID      string  `json:"transaction_id"`
	SourceAccount      string  `json:"source_account"`
	DestinationAccount string  `json:"destination_account"`
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
}

type Transaction struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	ProcessedAt   *string `json:"processed_at"`
	Attempts      int     `json:"attempts"`
	LastError     *string `json:"last_error"`
}

type sentIDs struct {
	mu  sync.Mutex
	ids []string
}

func (s *sentIDs) add(id string) {
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()
}

func (s *sentIDs) random() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[rand.Intn(len(s.ids))], true
}

func (s *sentIDs) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func main() {
	var wg sync.WaitGroup
	wg.Add(workers)
	sent := &sentIDs{}
	deliveries := make(map[string]int)
	var deliveriesMu sync.Mutex

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			start := time.Now()
			for time.Since(start) < duration {
				id, ok := sent.random()
				if !ok || rand.Float64() >= duplicateRate {
					id = uuid.New().String()
					sent.add(id)
				}

				if err := sendWebhook(createWebhook(id)); err != nil {
					fmt.Println("Error sending webhook:", err)
				} else {
					deliveriesMu.Lock()
					deliveries[id]++
					deliveriesMu.Unlock()
				}

				time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
			}
		}()
	}

	wg.Wait()

	ids := sent.all()
	fmt.Printf("Sent %d transactions, waiting for completion...\n", len(ids))

	deadline := time.Now().Add(pollTimeout)
	var failed int
	for _, id := range ids {
		tx, err := waitProcessed(id, deadline)
		if err != nil {
			failed++
			fmt.Printf("Transaction %s: %v\n", id, err)
			continue
		}
		if deliveries[id] > 1 {
			fmt.Printf("Transaction %s: %d deliveries, status %s, attempts %d\n", id, deliveries[id], tx.Status, tx.Attempts)
		}
	}

	fmt.Printf("Done. %d of %d transactions processed\n", len(ids)-failed, len(ids))
	if failed > 0 {
		os.Exit(1)
	}
}

func sendWebhook(webhook Webhook) error {
	data, err := json.Marshal(webhook)
	if err != nil {
		return err
	}

	resp, err := http.Post(webhooksURL, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("wrong status code: %d", resp.StatusCode)
	}
	return nil
}

// createWebhook builds a delivery for id. Redeliveries of an id carry the
// same payload only by chance; the service keeps the first one.
func createWebhook(id string) Webhook {
	return Webhook{
		TransactionID:      id,
		SourceAccount:      fmt.Sprintf("acc_%d", rand.Intn(100)),
		DestinationAccount: fmt.Sprintf("acc_%d", rand.Intn(100)),
		Amount:             float64(rand.Intn(100000)+1) / 100,
		Currency:           currencies[rand.Intn(len(currencies))],
	}
}

func waitProcessed(id string, deadline time.Time) (*Transaction, error) {
	for {
		tx, err := getTransaction(id)
		if err != nil {
			return nil, err
		}
		if tx.Status == "PROCESSED" {
			if tx.ProcessedAt == nil {
				return nil, fmt.Errorf("processed without processed_at")
			}
			return tx, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("still %s after %s", tx.Status, pollTimeout)
		}
		time.Sleep(time.Second)
	}
}

func getTransaction(id string) (*Transaction, error) {
	resp, err := http.Get(transactionsURL + id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wrong status code: %d", resp.StatusCode)
	}

	var tx Transaction
	if err = json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("error decoding transaction: %w", err)
	}
	return &tx, nil
}
