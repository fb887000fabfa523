package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/league-ledger/internal/domain"
)

// Synthetic match event generator for load testing the ingestion path.
// Emits goals, cards and substitutions for a set of fixtures at a fixed
// rate; the distribution roughly matches a real match day (mostly goals and
// yellows, the occasional red).

var eventTypes = []struct {
	t      domain.EventType
	weight int
}{
	{domain.EventGoal, 30},
	{domain.EventPenaltyGoal, 5},
	{domain.EventOwnGoal, 2},
	{domain.EventYellowCard, 35},
	{domain.EventSecondYellow, 3},
	{domain.EventRedCard, 2},
	{domain.EventSubstitutionIn, 12},
	{domain.EventSubstitutionOut, 11},
}

func randomEventType(rng *rand.Rand) domain.EventType {
	total := 0
	for _, e := range eventTypes {
		total += e.weight
	}
	n := rng.Intn(total)
	for _, e := range eventTypes {
		n -= e.weight
		if n < 0 {
			return e.t
		}
	}
	return domain.EventGoal
}

func main() {
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "match-events", "Kafka topic")
	matches := flag.Int("matches", 8, "Number of concurrent fixtures to simulate")
	playersPerTeam := flag.Int("players", 15, "Players per team")
	eventsPerSecond := flag.Int("rate", 20, "Events per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("match event producer: brokers=%s topic=%s matches=%d rate=%d/s\n",
		*brokers, *topic, *matches, *eventsPerSecond)

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sendEvent := func(msg domain.MatchEventMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		producer.Input() <- &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(msg.MatchID),
			Value: sarama.ByteEncoder(data),
		}
	}

	randomEvent := func() domain.MatchEventMessage {
		matchIdx := rng.Intn(*matches)
		// home side is team 2n, away side team 2n+1
		teamIdx := matchIdx*2 + rng.Intn(2)
		playerIdx := rng.Intn(*playersPerTeam)
		minute := 1 + rng.Intn(90)
		half := 1
		if minute > 45 {
			half = 2
		}

		return domain.MatchEventMessage{
			MatchID:   fmt.Sprintf("match-%03d", matchIdx+1),
			TeamID:    fmt.Sprintf("team-%03d", teamIdx+1),
			PlayerID:  fmt.Sprintf("player-%03d-%02d", teamIdx+1, playerIdx+1),
			EventType: randomEventType(rng),
			Minute:    minute,
			Half:      half,
			Timestamp: time.Now(),
		}
	}

	ticker := time.NewTicker(time.Second / time.Duration(*eventsPerSecond))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	var sent int64
loop:
	for {
		select {
		case <-ticker.C:
			sendEvent(randomEvent())
			sent++
		case <-deadline:
			break loop
		case <-sigChan:
			break loop
		}
	}

	producer.AsyncClose()
	wg.Wait()

	fmt.Printf("done: sent=%d acked=%d errors=%d\n",
		sent, atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
}
