package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/order-bot/internal/bot"
	"github.com/ksred/order-bot/internal/conversation"
	"github.com/ksred/order-bot/internal/database"
	"github.com/ksred/order-bot/internal/orders"
	"github.com/ksred/order-bot/internal/presentation"
	"github.com/ksred/order-bot/internal/replication"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minOrders  = 15
	maxOrders  = 150
	numWorkers = 5
)

var (
	platformNames = []string{"Amazon", "eBay", "AliExpress", "Etsy"}
	statuses      = []string{"Paid", "Pending", "Refunded", ""}
)

func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// stepStats tracks handling latency for one kind of bot interaction
type stepStats struct {
	name      string
	mu        sync.Mutex
	durations []time.Duration
	failures  int
}

func (s *stepStats) record(d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = append(s.durations, d)
	if failed {
		s.failures++
	}
}

// calculate returns min, max, mean, median, p95 and p99 of the recorded durations
func (s *stepStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(s.durations, func(i, j int) bool {
		return s.durations[i] < s.durations[j]
	})

	min = s.durations[0]
	max = s.durations[len(s.durations)-1]

	var sum time.Duration
	for _, d := range s.durations {
		sum += d
	}
	mean = sum / time.Duration(len(s.durations))
	median = s.durations[len(s.durations)/2]

	p95 = s.durations[int(math.Ceil(float64(len(s.durations))*0.95))-1]
	p99 = s.durations[int(math.Ceil(float64(len(s.durations))*0.99))-1]
	return
}

// simulation drives the dispatcher in process, the way the transport would
type simulation struct {
	dispatcher *bot.Dispatcher
	processor  *replication.Processor
	sheet      *replication.MemorySpreadsheet
	service    *orders.Service
	stats      map[string]*stepStats
	messageID  int
	mu         sync.Mutex
}

func newSimulation(admins []int64) (*simulation, error) {
	db, err := database.NewDatabase(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sheet := replication.NewMemorySpreadsheet()
	processor := replication.NewProcessor(sheet, replication.Config{QueueSize: 1024})
	service := orders.NewService(db, replication.NewSink(processor, presentation.FixedZone(3)))

	return &simulation{
		dispatcher: bot.NewDispatcher(service, conversation.NewMemoryStore(), bot.Config{
			AdminIDs:      admins,
			OrdersPerPage: 5,
		}),
		processor: processor,
		sheet:     sheet,
		service:   service,
		stats: map[string]*stepStats{
			"platform": {name: "Add platform"},
			"create":   {name: "Start order"},
			"field":    {name: "Answer prompt"},
			"save":     {name: "Save order"},
			"list":     {name: "List orders"},
			"delete":   {name: "Delete order"},
		},
	}, nil
}

func (s *simulation) nextMessageID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageID++
	return s.messageID
}

func failed(resp bot.Response) bool {
	for _, a := range resp.Actions {
		if a.Text == presentation.StoreFailed || a.Text == presentation.TooMany {
			return true
		}
	}
	return false
}

func (s *simulation) text(ctx context.Context, step string, userID int64, text string) bot.Response {
	return s.handle(ctx, step, bot.Event{
		UserID:    userID,
		HasUser:   true,
		ChatID:    userID,
		MessageID: s.nextMessageID(),
		Text:      text,
	})
}

func (s *simulation) press(ctx context.Context, step string, userID int64, action string, param ...interface{}) bot.Response {
	data, err := bot.Encode(action, param...)
	if err != nil {
		log.Fatal().Err(err).Str("action", action).Msg("Invalid callback payload")
	}
	return s.handle(ctx, step, bot.Event{
		UserID:       userID,
		HasUser:      true,
		ChatID:       userID,
		MessageID:    s.nextMessageID(),
		CallbackID:   uuid.New().String(),
		CallbackData: data,
	})
}

func (s *simulation) handle(ctx context.Context, step string, ev bot.Event) bot.Response {
	start := time.Now()
	resp := s.dispatcher.Handle(ctx, ev)
	s.stats[step].record(time.Since(start), failed(resp))
	return resp
}

// createOrders walks the creation wizard numOrders times as one admin
func (s *simulation) createOrders(ctx context.Context, userID int64, numOrders int, platformIDs []uint) int {
	created := 0
	for i := 0; i < numOrders; i++ {
		name := "Item " + uuid.New().String()[:8]

		s.press(ctx, "create", userID, bot.CbCreateOrder)
		s.text(ctx, "field", userID, name)
		s.press(ctx, "field", userID, bot.CbPlatformPick, platformIDs[rand.Intn(len(platformIDs))])

		if rand.Intn(2) == 0 {
			s.press(ctx, "field", userID, bot.CbSkip)
		} else {
			s.text(ctx, "field", userID, "https://example.com/"+name[5:])
		}
		s.text(ctx, "field", userID, statuses[rand.Intn(len(statuses))])
		s.press(ctx, "field", userID, bot.CbSkip)

		resp := s.press(ctx, "save", userID, bot.CbSave)
		if failed(resp) {
			log.Error().Int64("user_id", userID).Str("name", name).Msg("Failed to save order")
			continue
		}
		created++
		log.Debug().Int64("user_id", userID).Str("name", name).Msg("Order created")

		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
	}
	return created
}

func (s *simulation) printPerformanceStats() {
	fmt.Println("\n📊 Dispatcher Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Step", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	keys := make([]string, 0, len(s.stats))
	for k := range s.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		stats := s.stats[k]
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			len(stats.durations),
			stats.failures,
			min.Round(time.Microsecond),
			max.Round(time.Microsecond),
			mean.Round(time.Microsecond),
			median.Round(time.Microsecond),
			p95.Round(time.Microsecond),
			p99.Round(time.Microsecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs concurrent admins through the bot flows against an in-memory store and
// checks that the mirrored report matches the store afterwards.
func main() {
	admins := make([]int64, numWorkers)
	for i := range admins {
		admins[i] = int64(1000 + i)
	}

	sim, err := newSimulation(admins)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation")
	}

	processorCtx, processorCancel := context.WithCancel(context.Background())
	go sim.processor.Start(processorCtx)

	ctx := context.Background()
	started := time.Now()

	for _, name := range platformNames {
		sim.press(ctx, "platform", admins[0], bot.CbPlatformAdd)
		sim.text(ctx, "platform", admins[0], name)
	}
	platforms, err := sim.service.ListPlatforms(ctx)
	if err != nil || len(platforms) == 0 {
		log.Fatal().Err(err).Msg("No platforms available")
	}
	platformIDs := make([]uint, 0, len(platforms))
	for _, p := range platforms {
		platformIDs = append(platformIDs, p.ID)
	}

	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Int("admins", numWorkers).Msg("Starting simulation")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for _, admin := range admins {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			n := sim.createOrders(ctx, userID, targetOrders/numWorkers, platformIDs)
			mu.Lock()
			created += n
			mu.Unlock()
		}(admin)
	}
	wg.Wait()

	// Page through the list, deleting roughly one order in ten
	total, _ := sim.service.CountOrders(ctx)
	pages := int((total + 4) / 5)
	deleted := 0
	for page := 1; page <= pages; page++ {
		sim.press(ctx, "list", admins[0], bot.CbOrders, page)

		batch, err := sim.service.ListOrders(ctx, 5, (page-1)*5)
		if err != nil {
			log.Error().Err(err).Int("page", page).Msg("Failed to list orders")
			continue
		}
		for _, o := range batch {
			if rand.Intn(10) == 0 {
				sim.press(ctx, "delete", admins[0], bot.CbOrderDeleteOK, o.ID)
				deleted++
			}
		}
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := sim.processor.Flush(flushCtx); err != nil {
		log.Error().Err(err).Msg("Replication did not catch up")
	}
	flushCancel()

	remaining, _ := sim.service.CountOrders(ctx)
	mirrored := len(sim.sheet.Rows("Orders"))
	replicationStats := sim.processor.Stats()

	processorCancel()
	<-sim.processor.Stopped()

	duration := time.Since(started)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🤖 ORDER BOT SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf(`
📦 Orders
---------
Created:          %d
Deleted:          %d
Remaining:        %d
Mirrored rows:    %d
Replication jobs: %d ok, %d failed, %d dropped
Duration:         %v
`, created, deleted, remaining, mirrored,
		replicationStats.Succeeded, replicationStats.Failed, replicationStats.Dropped,
		duration.Round(time.Millisecond))
	fmt.Println(strings.Repeat("=", 80))

	sim.printPerformanceStats()

	if int64(mirrored) != remaining {
		log.Error().Int64("store", remaining).Int("sheet", mirrored).Msg("Report does not match the store")
		os.Exit(1)
	}
	log.Info().Dur("duration", duration).Msg("Simulation completed")
}
