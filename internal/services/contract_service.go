package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/cache"
	"github.com/bizadmin/backend/internal/logger"
	"github.com/bizadmin/backend/internal/metrics"
	"github.com/bizadmin/backend/internal/models"
	"github.com/bizadmin/backend/internal/permissions"
	"github.com/bizadmin/backend/internal/storage"
)

const contractCacheName = "contracts"

type CreateContractInput struct {
	Name              string                `json:"name" validate:"required,min=2,max=200"`
	ContractNumber    string                `json:"contractNumber" validate:"required,max=50"`
	Description       string                `json:"description"`
	Type              models.ContractType   `json:"type" validate:"required,oneof=PROVIDER HUMANITARIAN PARKING BULK"`
	Status            models.ContractStatus `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE PENDING RENEWAL_IN_PROGRESS EXPIRED TERMINATED"`
	StartDate         time.Time             `json:"startDate" validate:"required"`
	EndDate           time.Time             `json:"endDate" validate:"required"`
	RevenuePercentage float64               `json:"revenuePercentage" validate:"gte=0,lte=100"`
	ProviderID        *uint                 `json:"providerId"`
	HumanitarianOrgID *uint                 `json:"humanitarianOrgId"`
	ParkingServiceID  *uint                 `json:"parkingServiceId"`
}

// UpdateContractInput edits a contract. Nil fields are left alone.
type UpdateContractInput struct {
	Name              *string                `json:"name" validate:"omitnil,min=2,max=200"`
	ContractNumber    *string                `json:"contractNumber" validate:"omitnil,min=1,max=50"`
	Description       *string                `json:"description"`
	Status            *models.ContractStatus `json:"status" validate:"omitnil,oneof=DRAFT ACTIVE PENDING RENEWAL_IN_PROGRESS EXPIRED TERMINATED"`
	StartDate         *time.Time             `json:"startDate"`
	EndDate           *time.Time             `json:"endDate"`
	RevenuePercentage *float64               `json:"revenuePercentage" validate:"omitnil,gte=0,lte=100"`
}

// ContractPage is the list payload; it is also what the cache stores.
type ContractPage struct {
	Items      []models.Contract `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}

type ContractService struct {
	store    storage.Store
	cache    cache.Cache
	activity *ActivityLogService
	now      func() time.Time
}

func NewContractService(store storage.Store, c cache.Cache, activity *ActivityLogService) *ContractService {
	if c == nil {
		c = cache.Noop{}
	}
	return &ContractService{
		store:    store,
		cache:    c,
		activity: activity,
		now:      time.Now,
	}
}

func (s *ContractService) Create(ctx context.Context, actor *models.Actor, in CreateContractInput) (*models.Contract, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.Contracts, permissions.Create) {
		return nil, apperr.Forbidden("Not authorized to create contracts")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, apperr.Validation("Validation failed", map[string]string{"endDate": "must be after startDate"})
	}

	contract := &models.Contract{
		Name:              strings.TrimSpace(in.Name),
		ContractNumber:    strings.TrimSpace(in.ContractNumber),
		Description:       in.Description,
		Type:              in.Type,
		Status:            in.Status,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		RevenuePercentage: in.RevenuePercentage,
		ProviderID:        in.ProviderID,
		HumanitarianOrgID: in.HumanitarianOrgID,
		ParkingServiceID:  in.ParkingServiceID,
		CreatedByID:       actor.ID,
	}
	if contract.Status == "" {
		contract.Status = models.ContractDraft
	}

	if err := s.store.CreateContract(ctx, contract); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.Conflict("Contract number already exists")
		}
		return nil, apperr.Internal("Failed to create contract", err)
	}

	s.cache.Clear(ctx)

	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionContractCreated,
		EntityType: contractEntityType,
		EntityID:   contract.ID,
		UserID:     actor.ID,
		Details:    fmt.Sprintf("Contract %s (%s) created", contract.ContractNumber, contract.Name),
	})
	logger.WithUser(actor.ID).WithField("contract_id", contract.ID).Info("Contract created")
	return contract, nil
}

func (s *ContractService) Get(ctx context.Context, actor *models.Actor, id uint) (*models.Contract, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.Contracts, permissions.View) {
		return nil, apperr.Forbidden("Not authorized to view contracts")
	}
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Contract not found")
		}
		return nil, apperr.Internal("Failed to load contract", err)
	}
	return contract, nil
}

// Update edits a contract and clears the list cache.
func (s *ContractService) Update(ctx context.Context, actor *models.Actor, id uint, in UpdateContractInput) (*models.Contract, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.Contracts, permissions.Update) {
		return nil, apperr.Forbidden("Not authorized to update contracts")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	contract, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if in.Name != nil {
		contract.Name = strings.TrimSpace(*in.Name)
		changed = append(changed, "name")
	}
	if in.ContractNumber != nil {
		contract.ContractNumber = strings.TrimSpace(*in.ContractNumber)
		changed = append(changed, "contractNumber")
	}
	if in.Description != nil {
		contract.Description = *in.Description
		changed = append(changed, "description")
	}
	if in.Status != nil {
		contract.Status = *in.Status
		changed = append(changed, "status")
	}
	if in.StartDate != nil {
		contract.StartDate = *in.StartDate
		changed = append(changed, "startDate")
	}
	if in.EndDate != nil {
		contract.EndDate = *in.EndDate
		changed = append(changed, "endDate")
	}
	if in.RevenuePercentage != nil {
		contract.RevenuePercentage = *in.RevenuePercentage
		changed = append(changed, "revenuePercentage")
	}
	if len(changed) == 0 {
		return contract, nil
	}
	if !contract.EndDate.After(contract.StartDate) {
		return nil, apperr.Validation("Validation failed", map[string]string{"endDate": "must be after startDate"})
	}

	if err := s.store.UpdateContract(ctx, contract); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, apperr.Conflict("Contract number already exists")
		}
		return nil, apperr.Internal("Failed to update contract", err)
	}
	s.cache.Clear(ctx)

	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionContractUpdated,
		EntityType: contractEntityType,
		EntityID:   contract.ID,
		UserID:     actor.ID,
		Details:    fmt.Sprintf("Contract %s updated: %s", contract.ContractNumber, strings.Join(changed, ", ")),
	})
	return contract, nil
}

// Delete soft-deletes a contract and clears the list cache. Administrators only.
func (s *ContractService) Delete(ctx context.Context, actor *models.Actor, id uint) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !permissions.Can(actor.Role, permissions.Contracts, permissions.Delete) {
		return apperr.Forbidden("Not authorized to delete contracts")
	}
	if err := s.store.DeleteContract(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("Contract not found")
		}
		return apperr.Internal("Failed to delete contract", err)
	}
	s.cache.Clear(ctx)

	s.activity.Record(ctx, &models.ActivityLog{
		Action:     models.ActionContractDeleted,
		EntityType: contractEntityType,
		EntityID:   id,
		UserID:     actor.ID,
		Severity:   models.SeverityWarning,
		Details:    fmt.Sprintf("Contract %d deleted", id),
	})
	return nil
}

// List returns one page of contracts. The bool reports whether it came from the cache.
func (s *ContractService) List(ctx context.Context, actor *models.Actor, filter storage.ContractFilter) (*ContractPage, bool, error) {
	if err := requireActor(actor); err != nil {
		return nil, false, err
	}
	if !permissions.Can(actor.Role, permissions.Contracts, permissions.View) {
		return nil, false, apperr.Forbidden("Not authorized to view contracts")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, false, apperr.Validation("Validation failed", map[string]string{"type": "unknown contract type"})
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, false, apperr.Validation("Validation failed", map[string]string{"status": "unknown contract status"})
	}
	if filter.ExpiringWithin != nil && *filter.ExpiringWithin < 0 {
		return nil, false, apperr.Validation("Validation failed", map[string]string{"expiringWithin": "must not be negative"})
	}
	filter.Page = filter.Page.Normalize()

	// Free-text and date-window queries are not worth caching.
	cacheable := strings.TrimSpace(filter.Search) == "" && filter.ExpiringWithin == nil
	key := contractCacheKey(filter)
	if cacheable {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var page ContractPage
			if err := json.Unmarshal(raw, &page); err == nil {
				metrics.CacheHit(contractCacheName)
				return &page, true, nil
			}
		}
		metrics.CacheMiss(contractCacheName)
	}

	if filter.ExpiringWithin != nil && filter.Today.IsZero() {
		filter.Today = startOfDay(s.now())
	}
	contracts, total, err := s.store.ListContracts(ctx, filter)
	if err != nil {
		return nil, false, apperr.Internal("Failed to fetch contracts", err)
	}
	if contracts == nil {
		contracts = []models.Contract{}
	}

	page := &ContractPage{
		Items:      contracts,
		Total:      total,
		Page:       filter.Page.Page,
		Limit:      filter.Page.Limit,
		TotalPages: int((total + int64(filter.Page.Limit) - 1) / int64(filter.Page.Limit)),
	}
	if cacheable {
		if raw, err := json.Marshal(page); err == nil {
			s.cache.Set(ctx, key, raw)
		}
	}
	return page, false, nil
}

// contractCacheKey serializes the normalized query. url.Values encodes keys in
// sorted order so equal filters give equal keys.
func contractCacheKey(f storage.ContractFilter) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(f.Page.Page))
	v.Set("limit", strconv.Itoa(f.Page.Limit))
	if f.Type != "" {
		v.Set("type", string(f.Type))
	}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	setID := func(name string, id *uint) {
		if id != nil {
			v.Set(name, strconv.FormatUint(uint64(*id), 10))
		}
	}
	setID("providerId", f.ProviderID)
	setID("humanitarianOrgId", f.HumanitarianOrgID)
	setID("parkingServiceId", f.ParkingServiceID)
	return "contracts?" + v.Encode()
}
