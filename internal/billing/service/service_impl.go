package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/smallgrid/aquabill/internal/authctx"
	"github.com/smallgrid/aquabill/internal/authorization"
	"github.com/smallgrid/aquabill/internal/billing/domain"
	"github.com/smallgrid/aquabill/internal/clock"
	customerdomain "github.com/smallgrid/aquabill/internal/customer/domain"
	meterdomain "github.com/smallgrid/aquabill/internal/meter/domain"
	"github.com/smallgrid/aquabill/internal/observability/metrics"
	sitedomain "github.com/smallgrid/aquabill/internal/site/domain"
	tariffdomain "github.com/smallgrid/aquabill/internal/tariff/domain"
	"github.com/smallgrid/aquabill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	MeterRepo    meterdomain.Repository
	SiteRepo     sitedomain.Repository
	Tariffs      tariffdomain.Service
	Authz        authorization.Service
	Metrics      *metrics.BillingMetrics `optional:"true"`
	Receipts     domain.ReceiptRenderer  `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	meterRepo    meterdomain.Repository
	siteRepo     sitedomain.Repository
	tariffs      tariffdomain.Service
	authz        authorization.Service
	metrics      *metrics.BillingMetrics
	receipts     domain.ReceiptRenderer
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("billing.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		meterRepo:    p.MeterRepo,
		siteRepo:     p.SiteRepo,
		tariffs:      p.Tariffs,
		authz:        p.Authz,
		metrics:      p.Metrics,
		receipts:     p.Receipts,
	}
}

func (s *Service) SubmitReading(ctx context.Context, caller authctx.Caller, req domain.SubmitReadingRequest) (domain.BillingRecord, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return domain.BillingRecord{}, err
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.BillingRecord{}, err
	}
	if customer == nil {
		return domain.BillingRecord{}, domain.ErrNotFound
	}
	if err := s.authz.AuthorizeSite(ctx, caller, customer.SiteID); err != nil {
		return domain.BillingRecord{}, err
	}

	var result domain.BillingRecord
	outcome := "created"
	err = s.db.Transaction(func(tx *gorm.DB) error {
		latest, err := s.repo.FindLatestByCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}

		if latest == nil {
			result, err = s.createRecord(ctx, tx, caller, customer, req)
			return err
		}

		outcome = "updated"
		result, err = s.updateRecord(ctx, tx, caller, latest, req)
		return err
	})
	if err != nil {
		return domain.BillingRecord{}, err
	}

	if s.metrics != nil {
		s.metrics.ReadingsSubmitted.WithLabelValues(outcome).Inc()
	}
	s.log.Info("reading submitted",
		zap.String("customer_id", customerID.String()),
		zap.String("record_id", result.ID.String()),
		zap.String("outcome", outcome),
		zap.String("balance", result.Balance.StringFixed(2)),
	)
	return result, nil
}

// createRecord opens the customer's ledger with its first record.
func (s *Service) createRecord(ctx context.Context, tx *gorm.DB, caller authctx.Caller, customer *customerdomain.Customer, req domain.SubmitReadingRequest) (domain.BillingRecord, error) {
	if customer.MeterID == nil {
		return domain.BillingRecord{}, domain.ErrNoLinkedMeter
	}

	past := decimal.Zero
	if req.PastReading != nil {
		past = *req.PastReading
	}
	if req.CurrentReading.LessThan(past) {
		return domain.BillingRecord{}, domain.ErrReadingRegression
	}

	now := s.clock.Now()
	readingDate := now
	if req.ReadingDate != nil {
		readingDate = req.ReadingDate.UTC()
	}

	price, err := s.tariffs.CurrentAt(ctx, readingDate)
	if err != nil {
		if errors.Is(err, tariffdomain.ErrNoTariff) {
			return domain.BillingRecord{}, domain.ErrNoTariff
		}
		return domain.BillingRecord{}, err
	}

	amountPaid := decimal.Zero
	if req.AmountPaid != nil {
		amountPaid = *req.AmountPaid
	}

	consumption := req.CurrentReading.Sub(past)
	amountDue := consumption.Mul(price.Price).Round(2)
	balance := amountDue.Sub(amountPaid)

	record := domain.BillingRecord{
		ID:             s.genID.Generate(),
		CustomerID:     customer.ID,
		MeterID:        *customer.MeterID,
		PastReading:    past,
		CurrentReading: req.CurrentReading,
		ReadingDate:    readingDate,
		UnitPriceUsed:  price.Price,
		AmountDue:      amountDue,
		AmountPaid:     amountPaid,
		Balance:        balance,
		PaymentStatus:  domain.DerivePaymentStatus(balance, amountPaid),
		CreatedBy:      caller.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.InsertRecord(ctx, tx, &record); err != nil {
		return domain.BillingRecord{}, err
	}

	readingLog := domain.ReadingLog{
		ID:              s.genID.Generate(),
		BillingRecordID: record.ID,
		PreviousReading: past,
		NewReading:      req.CurrentReading,
		Note:            domain.NoteInitialReading,
		RecordedBy:      caller.UserID,
		RecordedAt:      now,
	}
	if err := s.repo.InsertReadingLog(ctx, tx, &readingLog); err != nil {
		return domain.BillingRecord{}, err
	}

	if amountPaid.GreaterThan(decimal.Zero) {
		if err := s.appendPaymentLog(ctx, tx, caller, record.ID, amountPaid, domain.MethodManual, "", now); err != nil {
			return domain.BillingRecord{}, err
		}
	}

	return record, nil
}

// updateRecord advances the live ledger entry. The reading window moves
// forward and amount_due accumulates; it is never recomputed from zero.
func (s *Service) updateRecord(ctx context.Context, tx *gorm.DB, caller authctx.Caller, old *domain.BillingRecord, req domain.SubmitReadingRequest) (domain.BillingRecord, error) {
	if req.CurrentReading.LessThan(old.CurrentReading) {
		return domain.BillingRecord{}, domain.ErrReadingRegression
	}

	now := s.clock.Now()
	readingDate := old.ReadingDate
	if req.ReadingDate != nil {
		readingDate = req.ReadingDate.UTC()
	}

	price, err := s.tariffs.CurrentAt(ctx, readingDate)
	if err != nil {
		if errors.Is(err, tariffdomain.ErrNoTariff) {
			return domain.BillingRecord{}, domain.ErrNoTariff
		}
		return domain.BillingRecord{}, err
	}

	record := *old
	readingChanged := !req.CurrentReading.Equal(old.CurrentReading)

	increment := req.CurrentReading.Sub(old.CurrentReading)
	record.PastReading = old.CurrentReading
	record.CurrentReading = req.CurrentReading
	record.ReadingDate = readingDate
	record.UnitPriceUsed = price.Price
	record.AmountDue = old.AmountDue.Add(increment.Mul(price.Price).Round(2))

	paidDelta := decimal.Zero
	if req.AmountPaid != nil {
		paidDelta = req.AmountPaid.Sub(old.AmountPaid)
		record.AmountPaid = *req.AmountPaid
	}

	record.Balance = record.AmountDue.Sub(record.AmountPaid)
	record.PaymentStatus = domain.DerivePaymentStatus(record.Balance, record.AmountPaid)
	record.UpdatedAt = now

	if err := s.repo.UpdateRecord(ctx, tx, &record); err != nil {
		return domain.BillingRecord{}, err
	}

	if readingChanged {
		readingLog := domain.ReadingLog{
			ID:              s.genID.Generate(),
			BillingRecordID: record.ID,
			PreviousReading: old.CurrentReading,
			NewReading:      req.CurrentReading,
			Note:            domain.NoteReadingUpdated,
			RecordedBy:      caller.UserID,
			RecordedAt:      now,
		}
		if err := s.repo.InsertReadingLog(ctx, tx, &readingLog); err != nil {
			return domain.BillingRecord{}, err
		}
	}

	// Zero or negative deltas apply to the record but leave no trail.
	if paidDelta.GreaterThan(decimal.Zero) {
		if err := s.appendPaymentLog(ctx, tx, caller, record.ID, paidDelta, domain.MethodManual, "", now); err != nil {
			return domain.BillingRecord{}, err
		}
	}

	return record, nil
}

func (s *Service) RecordPayment(ctx context.Context, caller authctx.Caller, req domain.RecordPaymentRequest) (domain.BillingRecord, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.BillingRecord{}, domain.ErrInvalidAmount
	}

	recordID, err := parseID(req.BillingRecordID)
	if err != nil {
		return domain.BillingRecord{}, err
	}

	record, err := s.authorizedRecord(ctx, caller, recordID)
	if err != nil {
		return domain.BillingRecord{}, err
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = domain.MethodManual
	}

	now := s.clock.Now()
	var updated domain.BillingRecord
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.appendPaymentLog(ctx, tx, caller, record.ID, req.Amount, method, strings.TrimSpace(req.Reference), now); err != nil {
			return err
		}

		updated = *record
		updated.AmountPaid = record.AmountPaid.Add(req.Amount)
		updated.Balance = record.Balance.Sub(req.Amount)
		updated.PaymentStatus = domain.DerivePaymentStatus(updated.Balance, updated.AmountPaid)
		updated.UpdatedAt = now
		return s.repo.UpdateRecord(ctx, tx, &updated)
	})
	if err != nil {
		return domain.BillingRecord{}, err
	}

	if s.metrics != nil {
		s.metrics.PaymentsRecorded.Inc()
	}
	s.log.Info("payment recorded",
		zap.String("record_id", record.ID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
	)
	return updated, nil
}

func (s *Service) GetRecord(ctx context.Context, caller authctx.Caller, id string) (domain.BillingRecord, error) {
	recordID, err := parseID(id)
	if err != nil {
		return domain.BillingRecord{}, err
	}

	record, err := s.authorizedRecord(ctx, caller, recordID)
	if err != nil {
		return domain.BillingRecord{}, err
	}
	return *record, nil
}

func (s *Service) ListRecords(ctx context.Context, caller authctx.Caller, req domain.ListRecordsRequest) ([]domain.BillingRecord, error) {
	filter := domain.RecordFilter{
		PaymentStatus: strings.ToUpper(strings.TrimSpace(req.PaymentStatus)),
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseID(req.CustomerID)
		if err != nil {
			return nil, err
		}
		filter.CustomerID = id
	}
	if strings.TrimSpace(req.MeterID) != "" {
		id, err := parseID(req.MeterID)
		if err != nil {
			return nil, err
		}
		filter.MeterID = id
	}

	items, err := s.repo.ListRecords(ctx, s.scopedRecords(caller), filter)
	if err != nil {
		return nil, err
	}

	records := make([]domain.BillingRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}
	return records, nil
}

func (s *Service) ListPayments(ctx context.Context, caller authctx.Caller, recordID string) ([]domain.PaymentLog, error) {
	var id snowflake.ID
	if strings.TrimSpace(recordID) != "" {
		parsed, err := parseID(recordID)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	stmt := s.authz.Scope(caller,
		s.db.Model(&domain.PaymentLog{}).
			Joins("JOIN billing_records ON billing_records.id = payment_logs.billing_record_id").
			Joins("JOIN customers ON customers.id = billing_records.customer_id"),
		"customers.site_id")

	items, err := s.repo.ListPaymentLogs(ctx, stmt, id)
	if err != nil {
		return nil, err
	}

	logs := make([]domain.PaymentLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	return logs, nil
}

func (s *Service) ListReadings(ctx context.Context, caller authctx.Caller, recordID string) ([]domain.ReadingLog, error) {
	var id snowflake.ID
	if strings.TrimSpace(recordID) != "" {
		parsed, err := parseID(recordID)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	stmt := s.authz.Scope(caller,
		s.db.Model(&domain.ReadingLog{}).
			Joins("JOIN billing_records ON billing_records.id = reading_logs.billing_record_id").
			Joins("JOIN customers ON customers.id = billing_records.customer_id"),
		"customers.site_id")

	items, err := s.repo.ListReadingLogs(ctx, stmt, id)
	if err != nil {
		return nil, err
	}

	logs := make([]domain.ReadingLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	return logs, nil
}

func (s *Service) ReceiptPDF(ctx context.Context, caller authctx.Caller, paymentLogID string) ([]byte, error) {
	if s.receipts == nil {
		return nil, domain.ErrNotFound
	}

	id, err := parseID(paymentLogID)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.FindPaymentLogByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}

	record, err := s.authorizedRecord(ctx, caller, payment.BillingRecordID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, record.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}

	receipt := domain.Receipt{
		Reference:     payment.TransactionReference,
		CustomerName:  strings.TrimSpace(customer.FirstName + " " + customer.LastName),
		Amount:        payment.AmountPaid,
		Method:        payment.PaymentMethod,
		PaymentDate:   payment.PaymentDate,
		RecordBalance: record.Balance,
	}

	if site, err := s.siteRepo.FindByID(ctx, s.db, customer.SiteID); err == nil && site != nil {
		receipt.SiteName = site.Name
	}
	if meter, err := s.meterRepo.FindByID(ctx, s.db, record.MeterID); err == nil && meter != nil {
		receipt.MeterNumber = meter.MeterNumber
	}

	out, err := s.receipts.Render(receipt)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ReceiptsRendered.Inc()
	}
	return out, nil
}

// authorizedRecord loads a record and checks site access through its
// customer.
func (s *Service) authorizedRecord(ctx context.Context, caller authctx.Caller, recordID snowflake.ID) (*domain.BillingRecord, error) {
	record, err := s.repo.FindRecordByID(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, record.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.authz.AuthorizeSite(ctx, caller, customer.SiteID); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) scopedRecords(caller authctx.Caller) *gorm.DB {
	return s.authz.Scope(caller,
		s.db.Model(&domain.BillingRecord{}).
			Joins("JOIN customers ON customers.id = billing_records.customer_id"),
		"customers.site_id")
}

func (s *Service) appendPaymentLog(ctx context.Context, tx *gorm.DB, caller authctx.Caller, recordID snowflake.ID, amount decimal.Decimal, method, reference string, at time.Time) error {
	if reference == "" {
		reference = ulid.Make().String()
	}

	log := domain.PaymentLog{
		ID:                   s.genID.Generate(),
		BillingRecordID:      recordID,
		AmountPaid:           amount,
		PaymentMethod:        method,
		TransactionReference: reference,
		PaymentDate:          at,
		CreatedBy:            caller.UserID,
		CreatedAt:            at,
	}

	if err := s.repo.InsertPaymentLog(ctx, tx, &log); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
