package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// Publisher ships a digest to a topic. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries that force a flush
	Topic          string
	Publisher      Publisher
	PublishTimeout time.Duration
}

// DigestEntry is one distinct log line and how often it was seen.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector de-duplicates log entries and publishes them as periodic digests.
type LogCollector struct {
	config  CollectionConfig
	mu      sync.Mutex
	entries map[string]*DigestEntry
	flushes chan []DigestEntry
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = 30 * time.Second
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = 100
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}

	c := &LogCollector{
		config:  cfg,
		entries: make(map[string]*DigestEntry),
		flushes: make(chan []DigestEntry, 4),
		done:    make(chan struct{}),
	}
	c.wg.Add(2)
	go c.tick()
	go c.publishLoop()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := digestKey(level, message, fields, caller)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &DigestEntry{
			Level: level, Message: message, Fields: fields, Caller: caller,
			Count: 1, FirstSeen: now, LastSeen: now,
		}
	}
	var batch []DigestEntry
	if len(c.entries) >= c.config.CountThreshold {
		batch = c.drainLocked()
	}
	c.mu.Unlock()

	if batch != nil {
		c.enqueue(batch)
	}
}

// Pending reports the number of distinct entries awaiting flush.
func (c *LogCollector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func digestKey(level, message string, fields map[string]interface{}, caller string) string {
	raw, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
		C string                 `json:"c"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *LogCollector) drainLocked() []DigestEntry {
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]DigestEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	c.entries = make(map[string]*DigestEntry)
	return out
}

func (c *LogCollector) enqueue(batch []DigestEntry) {
	select {
	case c.flushes <- batch:
	case <-c.done:
	default:
		fmt.Fprintf(os.Stderr, "log digest dropped: %d entries\n", len(batch))
	}
}

func (c *LogCollector) tick() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			batch := c.drainLocked()
			c.mu.Unlock()
			if batch != nil {
				c.enqueue(batch)
			}
		case <-c.done:
			return
		}
	}
}

func (c *LogCollector) publishLoop() {
	defer c.wg.Done()
	for {
		select {
		case batch := <-c.flushes:
			c.publish(batch)
		case <-c.done:
			for {
				select {
				case batch := <-c.flushes:
					c.publish(batch)
				default:
					c.mu.Lock()
					last := c.drainLocked()
					c.mu.Unlock()
					if last != nil {
						c.publish(last)
					}
					return
				}
			}
		}
	}
}

func (c *LogCollector) publish(batch []DigestEntry) {
	if c.config.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.PublishTimeout)
	defer cancel()
	if err := c.config.Publisher.Publish(ctx, c.config.Topic, nil, batch); err != nil {
		fmt.Fprintf(os.Stderr, "failed to publish log digest: %v\n", err)
	}
}

// Close stops the collector after publishing what remains.
func (c *LogCollector) Close() {
	c.once.Do(func() { close(c.done) })
	c.wg.Wait()
}
