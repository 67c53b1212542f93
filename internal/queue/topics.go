package queue

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TopicSpec describes the Kafka topic the event stream publishes to.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	MaxWait           time.Duration
}

// EnsureTopic creates the topic on the cluster controller if it does not
// exist and waits until every partition has a leader. Meant for deploy-time
// provisioning; the runtime writer also has auto-creation enabled as a
// fallback.
func EnsureTopic(ctx context.Context, broker string, spec TopicSpec, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if spec.NumPartitions <= 0 {
		spec.NumPartitions = 1
	}
	if spec.ReplicationFactor <= 0 {
		spec.ReplicationFactor = 1
	}
	if spec.MaxWait <= 0 {
		spec.MaxWait = 30 * time.Second
	}

	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ctrl, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("resolve controller: %w", err)
	}
	cconn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cconn.Close()

	err = cconn.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("create topic %s: %w", spec.Name, err)
	}

	deadline := time.Now().Add(spec.MaxWait)
	backoff := 200 * time.Millisecond
	for time.Now().Before(deadline) {
		parts, err := conn.ReadPartitions(spec.Name)
		if err == nil && len(parts) > 0 && allHaveLeader(parts) {
			log.Info("topic ready", zap.String("topic", spec.Name),
				zap.Int("partitions", len(parts)))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("topic %s not ready in time", spec.Name)
}

func allHaveLeader(parts []kafka.Partition) bool {
	for _, p := range parts {
		if p.Leader.ID == -1 {
			return false
		}
	}
	return true
}
