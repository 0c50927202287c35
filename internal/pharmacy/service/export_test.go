package service

import "time"

// SetNow replaces the service clock in tests
func (s *ScanService) SetNow(now func() time.Time) { s.now = now }

// SetNow replaces the service clock in tests
func (s *DashboardService) SetNow(now func() time.Time) { s.now = now }
