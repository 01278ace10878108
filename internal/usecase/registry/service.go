package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/usecase/guard"
)

// RegistryService holds the contract's name and administrator
type RegistryService struct {
	mu     sync.RWMutex
	info   domain.ContractInfo
	logger *zap.Logger
}

// NewRegistryService creates a registry with the deployment-time name and admin
func NewRegistryService(name string, admin domain.Address, logger *zap.Logger) (*RegistryService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	info := domain.ContractInfo{Name: strings.TrimSpace(name), Admin: admin}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid contract info: %w", err)
	}

	return &RegistryService{info: info, logger: logger}, nil
}

// GetInfo returns a copy of the current record
func (s *RegistryService) GetInfo(_ context.Context) domain.ContractInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// SetName renames the contract. Only the administrator may call it.
func (s *RegistryService) SetName(_ context.Context, caller domain.Address, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := guard.IsAdmin(caller, &s.info); err != nil {
		return err
	}

	next := s.info
	next.Name = strings.TrimSpace(name)
	if err := next.Validate(); err != nil {
		return err
	}

	previous := s.info.Name
	s.info = next
	s.logger.Info("contract renamed", zap.String("from", previous), zap.String("to", next.Name))
	return nil
}
