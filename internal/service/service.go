package service

import (
	"github.com/volcanowatch/backend/internal/domain"
)

// DataRepository is re-exported from domain for convenience
type DataRepository = domain.DataRepository

// RuleStore is re-exported from domain for convenience
type RuleStore = domain.RuleStore
