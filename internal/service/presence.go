package service

import (
	"fmt"
	"log/slog"
	"time"

	"ecodesk/internal/models"
	"ecodesk/internal/repository"
)

// PresenceStatus is the derived view of a staff member's availability.
type PresenceStatus struct {
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
	Label    string     `json:"label"`
}

// PresenceService gates wait-time expectations for end users, so writes go
// straight to the datastore with no buffering. Write failures are logged and
// swallowed: the next connect or heartbeat self-heals.
type PresenceService struct {
	repo   *repository.PresenceRepository
	window time.Duration
	log    *slog.Logger
	now    func() time.Time
}

func NewPresenceService(repo *repository.PresenceRepository, recentWindow time.Duration, log *slog.Logger) *PresenceService {
	return &PresenceService{
		repo:   repo,
		window: recentWindow,
		log:    log,
		now:    time.Now,
	}
}

// SetOnline upserts the presence row and refreshes last_seen. Idempotent.
func (s *PresenceService) SetOnline(staffID uint, online bool) {
	ts := s.now()
	p := &models.StaffPresence{
		StaffID:  staffID,
		IsOnline: online,
		LastSeen: &ts,
	}
	if err := s.repo.Upsert(p); err != nil {
		s.log.Warn("presence update failed", "staff_id", staffID, "online", online, "err", err)
	}
}

// Heartbeat refreshes last_seen without changing the online flag.
func (s *PresenceService) Heartbeat(staffID uint) {
	p, err := s.repo.GetByStaffID(staffID)
	if err != nil {
		s.log.Warn("presence heartbeat failed", "staff_id", staffID, "err", err)
		return
	}
	online := p != nil && p.IsOnline
	ts := s.now()
	if err := s.repo.Upsert(&models.StaffPresence{StaffID: staffID, IsOnline: online, LastSeen: &ts}); err != nil {
		s.log.Warn("presence heartbeat failed", "staff_id", staffID, "err", err)
	}
}

// Status returns the stored flags plus a human label. An unknown staff id
// yields a "never seen" record rather than an error.
func (s *PresenceService) Status(staffID uint) PresenceStatus {
	p, err := s.repo.GetByStaffID(staffID)
	if err != nil {
		s.log.Warn("presence read failed", "staff_id", staffID, "err", err)
		p = nil
	}
	if p == nil {
		return PresenceStatus{Label: "never seen"}
	}
	return PresenceStatus{
		IsOnline: p.IsOnline,
		LastSeen: p.LastSeen,
		Label:    s.label(p),
	}
}

// RecentlyActive is true when the staff member is online or was seen within
// the configured window.
func (s *PresenceService) RecentlyActive(staffID uint) bool {
	p, err := s.repo.GetByStaffID(staffID)
	if err != nil || p == nil {
		return false
	}
	if p.IsOnline {
		return true
	}
	return p.LastSeen != nil && s.now().Sub(*p.LastSeen) < s.window
}

func (s *PresenceService) label(p *models.StaffPresence) string {
	if p.IsOnline {
		return "online"
	}
	if p.LastSeen == nil {
		return "never seen"
	}
	elapsed := s.now().Sub(*p.LastSeen)
	switch {
	case elapsed < s.window:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(elapsed.Hours())/24)
	}
}
