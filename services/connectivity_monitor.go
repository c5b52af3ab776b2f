package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/pos-sync/utils"
)

// Pinger is the one remote call the monitor needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectivityMonitor probes the remote on an interval and publishes
// online/offline transitions.
type ConnectivityMonitor struct {
	Pinger   Pinger
	StopChan chan struct{}
	Interval time.Duration
	Timeout  time.Duration

	mu       sync.RWMutex
	online   bool
	subs     []chan bool
	stopOnce sync.Once
}

func NewConnectivityMonitor(p Pinger, interval time.Duration) *ConnectivityMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ConnectivityMonitor{
		Pinger:   p,
		StopChan: make(chan struct{}),
		Interval: interval,
		Timeout:  5 * time.Second,
	}
}

// Start probes once synchronously so Online is meaningful on return, then
// keeps probing in the background.
func (cm *ConnectivityMonitor) Start() {
	cm.Probe(context.Background())

	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cm.Probe(context.Background())
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ConnectivityMonitor) Stop() {
	cm.stopOnce.Do(func() { close(cm.StopChan) })
}

// Probe pings the remote and records the outcome.
func (cm *ConnectivityMonitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, cm.Timeout)
	defer cancel()

	err := cm.Pinger.Ping(ctx)
	if err != nil {
		utils.InfoLogger.Debugf("Connectivity probe failed: %v", err)
	}
	cm.SetOnline(err == nil)
	return err == nil
}

func (cm *ConnectivityMonitor) Online() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.online
}

// SetOnline records the state and notifies subscribers on a change only.
func (cm *ConnectivityMonitor) SetOnline(online bool) {
	cm.mu.Lock()
	if cm.online == online {
		cm.mu.Unlock()
		return
	}
	cm.online = online
	subs := append([]chan bool(nil), cm.subs...)
	cm.mu.Unlock()

	if online {
		utils.InfoLogger.Info("Remote store reachable, back online")
	} else {
		utils.InfoLogger.Warn("Remote store unreachable, working offline")
	}
	for _, ch := range subs {
		select {
		case ch <- online:
		default:
		}
	}
}

// MarkOffline lets callers that saw a connection failure flip the state
// before the next probe.
func (cm *ConnectivityMonitor) MarkOffline() {
	cm.SetOnline(false)
}

// Subscribe returns a channel of transitions. A receiver that falls behind
// misses intermediate transitions.
func (cm *ConnectivityMonitor) Subscribe() <-chan bool {
	ch := make(chan bool, 4)
	cm.mu.Lock()
	cm.subs = append(cm.subs, ch)
	cm.mu.Unlock()
	return ch
}
