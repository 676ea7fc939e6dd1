package connection

import (
	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
	"github.com/Staysteady/financial-dashboard-sub000/internal/domain/entity"
)

// ListBanksOutput lists the banks available for connection.
type ListBanksOutput struct {
	Banks []entity.BankInfo
}

// ListBanksUseCase exposes the registered banks.
type ListBanksUseCase struct {
	registry adapter.BankRegistry
}

// NewListBanksUseCase creates a new ListBanksUseCase instance.
func NewListBanksUseCase(registry adapter.BankRegistry) *ListBanksUseCase {
	return &ListBanksUseCase{registry: registry}
}

// Execute returns the secret-free list of registered banks.
func (uc *ListBanksUseCase) Execute() *ListBanksOutput {
	return &ListBanksOutput{Banks: uc.registry.List()}
}
