package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/shopledger/internal/apperror"
	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/repository"
	"github.com/mmeshcher/shopledger/internal/validation"
)

// CurrencyInput содержит данные для создания валюты.
type CurrencyInput struct {
	Name      string
	Symbol    string
	Sign      string
	Rate      decimal.Decimal
	Decimals  int32
	IsDefault bool
}

// CreateCurrency создаёт валюту. Первая созданная валюта и валюта с IsDefault
// становятся валютой по умолчанию в той же транзакции.
func (s *Service) CreateCurrency(ctx context.Context, in CurrencyInput) (*model.Currency, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))

	if in.Name == "" {
		return nil, apperror.BadRequest("Missing required field: name")
	}
	if !validation.IsValidCurrencyCode(in.Symbol) {
		return nil, apperror.BadRequest("Invalid currency symbol")
	}
	if !in.Rate.IsPositive() {
		return nil, apperror.BadRequest("Rate must be positive")
	}
	if in.Decimals < 0 {
		return nil, apperror.BadRequest("Decimals cannot be negative")
	}

	publicID, err := newPublicID()
	if err != nil {
		return nil, apperror.Internal("Currency not saved", err)
	}

	c := &model.Currency{
		PublicID: publicID,
		Name:     in.Name,
		Symbol:   in.Symbol,
		Rate:     in.Rate,
		Decimals: in.Decimals,
		Sign:     in.Sign,
	}

	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		defaults, err := s.repo.ListDefaultCurrencies(ctx)
		if err != nil {
			return apperror.Internal("Currency not saved", err)
		}

		if err := s.repo.CreateCurrency(ctx, c); err != nil {
			if errors.Is(err, repository.ErrCurrencyExists) {
				return apperror.Conflict("Currency already exists")
			}
			return apperror.Internal("Currency not saved", err)
		}

		if in.IsDefault || len(defaults) == 0 {
			updated, err := s.setDefault(ctx, c.PublicID)
			if err != nil {
				return err
			}
			c = updated
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "Currency not saved")
	}

	return c, nil
}

// GetCurrency возвращает валюту по публичному идентификатору.
func (s *Service) GetCurrency(ctx context.Context, publicID string) (*model.Currency, error) {
	c, err := s.repo.GetCurrencyByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrCurrencyNotFound) {
			return nil, apperror.NotFound("Currency not found")
		}
		return nil, apperror.Internal("Currency lookup failed", err)
	}
	return c, nil
}

// ListCurrencies возвращает все валюты.
func (s *Service) ListCurrencies(ctx context.Context) ([]model.Currency, error) {
	res, err := s.repo.ListCurrencies(ctx)
	if err != nil {
		return nil, apperror.Internal("Currency lookup failed", err)
	}
	return res, nil
}

// SetDefault делает валюту валютой по умолчанию и пересчитывает курсы остальных
// валют относительно неё.
func (s *Service) SetDefault(ctx context.Context, publicID string) (*model.Currency, error) {
	var res *model.Currency
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		c, err := s.setDefault(ctx, publicID)
		res = c
		return err
	})
	if err != nil {
		return nil, asAppError(err, "Currency not saved")
	}
	return res, nil
}

func (s *Service) setDefault(ctx context.Context, publicID string) (*model.Currency, error) {
	all, err := s.repo.LockCurrencies(ctx)
	if err != nil {
		return nil, apperror.Internal("Currency not saved", err)
	}

	var target *model.Currency
	for i := range all {
		if all[i].PublicID == publicID {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return nil, apperror.NotFound("Currency not found")
	}

	newRate := target.Rate
	if !newRate.IsPositive() {
		return nil, apperror.Internal("Currency not saved", errors.New("non-positive rate"))
	}

	// снятие старого признака идёт первым, иначе сработает уникальный индекс
	updates := make([]repository.CurrencyRate, 0, len(all))
	for _, c := range all {
		if c.ID == target.ID || !c.IsDefault {
			continue
		}
		updates = append(updates, repository.CurrencyRate{ID: c.ID, Rate: c.Rate.Div(newRate)})
	}
	for _, c := range all {
		if c.ID == target.ID || c.IsDefault {
			continue
		}
		updates = append(updates, repository.CurrencyRate{ID: c.ID, Rate: c.Rate.Div(newRate)})
	}
	updates = append(updates, repository.CurrencyRate{ID: target.ID, Rate: decimal.NewFromInt(1), IsDefault: true})

	if err := s.repo.UpdateCurrencyRates(ctx, updates); err != nil {
		return nil, apperror.Internal("Currency not saved", err)
	}

	res := *target
	res.Rate = decimal.NewFromInt(1)
	res.IsDefault = true
	return &res, nil
}

// GetDefault возвращает единственную валюту по умолчанию.
func (s *Service) GetDefault(ctx context.Context) (*model.Currency, error) {
	defaults, err := s.repo.ListDefaultCurrencies(ctx)
	if err != nil {
		return nil, apperror.Internal("Currency lookup failed", err)
	}
	return pickDefault(defaults)
}

func pickDefault(currencies []model.Currency) (*model.Currency, error) {
	var found []model.Currency
	for _, c := range currencies {
		if c.IsDefault {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 1:
		return &found[0], nil
	case 0:
		return nil, apperror.Internal("Default currency not found", nil)
	default:
		return nil, apperror.Internal("More than one default currency", nil)
	}
}

// RefreshRates запрашивает курсы всех валют относительно валюты по умолчанию
// и применяет их одним пакетом. Валюты без курса в ответе пропускаются с предупреждением.
func (s *Service) RefreshRates(ctx context.Context) ([]model.Currency, error) {
	if s.rates == nil {
		return nil, apperror.Unavailable("Rates service is not configured", nil)
	}

	all, err := s.repo.ListCurrencies(ctx)
	if err != nil {
		return nil, apperror.Internal("Currency lookup failed", err)
	}
	def, err := pickDefault(all)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(all))
	for _, c := range all {
		symbols = append(symbols, c.Symbol)
	}

	fetched, err := s.rates.FetchRates(ctx, def.Symbol, symbols)
	if err != nil {
		return nil, apperror.Unavailable("Rates service unavailable", err)
	}
	if len(fetched) == 0 {
		return nil, apperror.Unavailable("Rates service returned no rates", nil)
	}

	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockCurrencies(ctx)
		if err != nil {
			return apperror.Internal("Rates not saved", err)
		}
		current, err := pickDefault(locked)
		if err != nil {
			return err
		}
		if current.ID != def.ID {
			return apperror.Conflict("Default currency changed during refresh")
		}

		var updates []repository.CurrencyRate
		for _, c := range locked {
			if c.IsDefault {
				continue
			}
			rate, ok := fetched[c.Symbol]
			if !ok {
				s.logger.Warn("rate not found for currency", zap.String("symbol", c.Symbol), zap.String("base", def.Symbol))
				continue
			}
			if !rate.IsPositive() {
				s.logger.Warn("non-positive rate ignored", zap.String("symbol", c.Symbol), zap.String("rate", rate.String()))
				continue
			}
			updates = append(updates, repository.CurrencyRate{ID: c.ID, Rate: rate})
		}

		if err := s.repo.UpdateCurrencyRates(ctx, updates); err != nil {
			return apperror.Internal("Rates not saved", err)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "Rates not saved")
	}

	return s.ListCurrencies(ctx)
}

// StartRateUpdates запускает фоновое обновление курсов с периодом interval.
// При нулевом периоде или отсутствии источника курсов ничего не делает.
func (s *Service) StartRateUpdates(ctx context.Context, interval time.Duration) {
	if s.rates == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RefreshRates(ctx); err != nil {
					s.logger.Error("refresh rates", zap.Error(err))
				}
			}
		}
	}()
}

// asAppError оставляет ошибки сервиса как есть, остальные считает внутренними.
func asAppError(err error, msg string) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(msg, err)
}
