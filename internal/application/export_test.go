package application

import "time"

// SetCredentialClock replaces the clock used by a CredentialManager.
func SetCredentialClock(m *CredentialManager, now func() time.Time) { m.now = now }

// SetScanClock replaces the clock used by a ScanService.
func SetScanClock(s *ScanService, now func() time.Time) { s.now = now }

// SetNotifyClock replaces the clock used by a NotifyService.
func SetNotifyClock(s *NotifyService, now func() time.Time) { s.now = now }

// FindReminderThread is exported for testing
var FindReminderThread = findReminderThread

// FormatWindow is exported for testing
var FormatWindow = formatWindow

// ProactiveRetryInterval exposes the pause after a failed proactive refresh.
const ProactiveRetryInterval = proactiveRetryInterval
