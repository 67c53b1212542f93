// kafka-init provisions the queue event-stream topics before the monitor
// starts publishing to them.
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nostrwatch/relaymon/internal/queue"
)

func main() {
	broker := env("KAFKA_BROKER", "localhost:9094")
	topics := strings.Split(env("KAFKA_TOPICS", "relaymon.queue.events"), ",")
	partitions := envInt("KAFKA_PARTITIONS", 1)
	rf := envInt("KAFKA_RF", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		spec := queue.TopicSpec{
			Name:              t,
			NumPartitions:     partitions,
			ReplicationFactor: rf,
		}
		if err := queue.EnsureTopic(ctx, broker, spec, nil); err != nil {
			log.Fatalf("ensure topic %q: %v", t, err)
		}
		log.Printf("topic %q ready", t)
	}
	log.Println("kafka-init ok")
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			return n
		}
	}
	return def
}
