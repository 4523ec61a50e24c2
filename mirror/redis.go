package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"floorwatch/fleet"

	"github.com/redis/go-redis/v9"
)

func machineKey(id int) string {
	return fmt.Sprintf("floorwatch:machine:%d", id)
}

const (
	allMachinesKey = "floorwatch:machines"
	statsKey       = "floorwatch:stats"
)

// RedisMirror copies machine records into Redis for read-only consumers.
type RedisMirror struct {
	client  *redis.Client
	timeout time.Duration
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*RedisMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisMirror(client), nil
}

func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client, timeout: 2 * time.Second}
}

// PutMachine writes one machine record and registers its id.
func (r *RedisMirror) PutMachine(ctx context.Context, m fleet.Machine) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, machineKey(m.ID), data, 0)
	pipe.SAdd(ctx, allMachinesKey, m.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// PutStats stores the current overview aggregates.
func (r *RedisMirror) PutStats(ctx context.Context, s fleet.Stats) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, statsKey, data, 0).Err()
}

// MachineIDs lists the ids registered in the machine set.
func (r *RedisMirror) MachineIDs(ctx context.Context) ([]int, error) {
	members, err := r.client.SMembers(ctx, allMachinesKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Sync mirrors the whole fleet and its aggregates.
func (r *RedisMirror) Sync(ctx context.Context, machines []fleet.Machine) error {
	for _, m := range machines {
		if err := r.PutMachine(ctx, m); err != nil {
			return fmt.Errorf("mirror machine %d: %w", m.ID, err)
		}
	}
	return r.PutStats(ctx, fleet.ComputeStats(machines))
}

// Machine mirrors a single change together with fresh aggregates, bounded
// by the mirror timeout.
func (r *RedisMirror) Machine(m fleet.Machine, stats fleet.Stats) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.PutMachine(ctx, m); err != nil {
		return err
	}
	return r.PutStats(ctx, stats)
}

// FlushAll removes every mirrored key, including machines left over from
// an earlier fleet.
func (r *RedisMirror) FlushAll(ctx context.Context) error {
	ids, err := r.MachineIDs(ctx)
	if err != nil {
		return err
	}
	keys := []string{allMachinesKey, statsKey}
	for _, id := range ids {
		keys = append(keys, machineKey(id))
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisMirror) Close() error {
	return r.client.Close()
}
