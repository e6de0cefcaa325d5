package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/services/technician-service/internal/domain"
	"github.com/you/fieldservice-booking/services/technician-service/internal/repository"
)

type TechnicianSvc struct {
	repo *repository.TechnicianRepo
	log  *zap.Logger
}

func NewTechnicianSvc(r *repository.TechnicianRepo, log *zap.Logger) *TechnicianSvc {
	return &TechnicianSvc{repo: r, log: log}
}

func (s *TechnicianSvc) MarkBusy(ctx context.Context, id string) (*domain.Technician, error) {
	t, err := s.repo.MarkBusy(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("technician marked busy", zap.String("technician_id", id))
	return t, nil
}

func (s *TechnicianSvc) MarkAvailable(ctx context.Context, id string) (*domain.Technician, error) {
	t, err := s.repo.MarkAvailable(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("technician marked available", zap.String("technician_id", id))
	return t, nil
}

func (s *TechnicianSvc) Get(ctx context.Context, id string) (*domain.Technician, error) {
	return s.repo.ByID(ctx, id)
}

func (s *TechnicianSvc) List(ctx context.Context, page, size int32) ([]domain.Technician, error) {
	return s.repo.List(ctx, page, size)
}
