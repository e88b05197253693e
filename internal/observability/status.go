package observability

import (
	"sync"
	"time"
)

type Role string

const (
	RoleIdle      Role = "IDLE"
	RolePlanning  Role = "PLANNING"
	RoleExecuting Role = "EXECUTING"
)

type SystemStatus struct {
	mu            sync.RWMutex
	CurrentRole   Role
	ActiveGoal    string
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	CurrentRole:   RoleIdle,
	LastHeartbeat: time.Now(),
}

// SetStatus updates the global system status.
func SetStatus(role Role, goal string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentRole = role
	globalStatus.ActiveGoal = goal
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (Role, string, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.CurrentRole, globalStatus.ActiveGoal, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
