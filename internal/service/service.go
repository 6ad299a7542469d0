package service

import (
	"github.com/arkanova/solar-monitor/internal/repository"
)

// Services is what the HTTP layer is built over.
type Services struct {
	Repos   *repository.Repos
	Summary *PanelSummaryService
	Backup  *BackupService
}

func New(repos *repository.Repos, backup *BackupService) *Services {
	return &Services{
		Repos:   repos,
		Summary: NewPanelSummaryService(repos.Panels, repos.Sensors, repos.Measurements),
		Backup:  backup,
	}
}
