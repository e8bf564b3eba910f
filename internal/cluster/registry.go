// Package cluster holds the master's view of the worker fleet: which worker
// serves which shard, and how healthy each worker currently looks.
package cluster

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"scalematch/internal/orchestrator"
	"scalematch/internal/worker/rpc"
)

// Member assigns one shard to the worker at URL.
type Member struct {
	ShardID  string `json:"shardId"`
	WorkerID string `json:"workerId"`
	URL      string `json:"url"`
}

// ParseMembers parses "shardA=http://host:8081,shardB=http://host:8082".
// Shards that share a URL share a worker, and therefore a breaker.
func ParseMembers(raw string) ([]Member, error) {
	var out []Member
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		shardID, rawURL, ok := strings.Cut(part, "=")
		shardID, rawURL = strings.TrimSpace(shardID), strings.TrimSpace(rawURL)
		if !ok || shardID == "" || rawURL == "" {
			return nil, fmt.Errorf("worker entry %q: want shardId=url", part)
		}
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("worker entry %q: invalid url", part)
		}
		if seen[shardID] {
			return nil, fmt.Errorf("shard %q assigned twice", shardID)
		}
		seen[shardID] = true
		out = append(out, Member{ShardID: shardID, WorkerID: u.Host, URL: strings.TrimRight(rawURL, "/")})
	}
	return out, nil
}

// Registry is a static shard-to-worker map. It implements
// orchestrator.Directory.
type Registry struct {
	mu      sync.RWMutex
	members map[string]Member
	clients map[string]*rpc.Client // by worker id
}

// NewRegistry builds clients for every distinct worker in members.
func NewRegistry(members []Member, opts ...rpc.ClientOption) (*Registry, error) {
	r := &Registry{
		members: make(map[string]Member, len(members)),
		clients: make(map[string]*rpc.Client),
	}
	for _, m := range members {
		if _, ok := r.clients[m.WorkerID]; !ok {
			c, err := rpc.NewClient(m.WorkerID, m.URL, opts...)
			if err != nil {
				return nil, fmt.Errorf("worker %s: %w", m.WorkerID, err)
			}
			r.clients[m.WorkerID] = c
		}
		r.members[m.ShardID] = m
	}
	return r, nil
}

// ShardIDs lists every registered shard in sorted order.
func (r *Registry) ShardIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Client returns the client of the worker hosting shardID.
func (r *Registry) Client(shardID string) (orchestrator.ShardClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[shardID]
	if !ok {
		return nil, false
	}
	c, ok := r.clients[m.WorkerID]
	if !ok {
		return nil, false
	}
	return c, true
}

// Members returns the shard assignments ordered by shard id.
func (r *Registry) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b Member) int { return strings.Compare(a.ShardID, b.ShardID) })
	return out
}

// Workers returns one client per distinct worker, ordered by worker id.
func (r *Registry) Workers() []*rpc.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*rpc.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *rpc.Client) int { return strings.Compare(a.WorkerID(), b.WorkerID()) })
	return out
}

// Checkers adapts Workers for the health monitor.
func (r *Registry) Checkers() []HealthChecker {
	workers := r.Workers()
	out := make([]HealthChecker, len(workers))
	for i, w := range workers {
		out[i] = w
	}
	return out
}
