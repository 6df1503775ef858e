package models

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

const (
	PointsAccountActive = "active"
	PointsAccountFrozen = "frozen"
	PointsAccountClosed = "closed"
)

const (
	LedgerEarn        = "earn"
	LedgerRedeem      = "redeem"
	LedgerAdjust      = "adjust"
	LedgerExpire      = "expire"
	LedgerTransferIn  = "transfer_in"
	LedgerTransferOut = "transfer_out"
)

type PointsAccount struct {
	ID               int       `gorm:"primary_key" json:"id"`
	BankId           string    `gorm:"index;size:64;not null" json:"bank_id"`
	CustomerTierId   int       `gorm:"uniqueIndex;not null" json:"customer_tier_id"`
	AccountNumber    string    `gorm:"uniqueIndex;size:32;not null" json:"account_number"`
	Balance          int64     `gorm:"not null;default:0" json:"balance"`
	LifetimeEarned   int64     `gorm:"not null;default:0" json:"lifetime_earned"`
	LifetimeRedeemed int64     `gorm:"not null;default:0" json:"lifetime_redeemed"`
	Status           string    `gorm:"index;size:10;not null;default:'active'" json:"status"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	CustomerTier *CustomerTier `gorm:"foreignKey:CustomerTierId" json:"customer_tier,omitempty"`
}

type PointsLedgerEntry struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BankId       string    `gorm:"index;size:64;not null" json:"bank_id"`
	AccountId    int       `gorm:"index:idx_ledger_account;not null" json:"account_id"`
	ReferenceNo  string    `gorm:"uniqueIndex;size:40;not null" json:"reference_no"`
	EntryType    string    `gorm:"index;size:20;not null" json:"entry_type"`
	Points       int64     `gorm:"not null" json:"points"`
	BalanceAfter int64     `gorm:"not null" json:"balance_after"`
	Description  string    `gorm:"size:255" json:"description"`
	CreatedBy    string    `gorm:"size:100" json:"created_by"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_ledger_account" json:"created_at"`
}

type NewPointsAccount struct {
	CustomerTierId int   `json:"customer_tier_id" binding:"required"`
	OpeningBalance int64 `json:"opening_balance" binding:"min=0"`
}

type PostPointsInput struct {
	EntryType   string `json:"entry_type" binding:"required"`
	Points      int64  `json:"points" binding:"required"`
	Description string `json:"description"`
}

type PointsAccountFilter struct {
	Status string `form:"status"`
	Search string `form:"search"`
	PageInput
}

type LedgerFilter struct {
	EntryType string     `form:"entry_type"`
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	PageInput
}

func (a PointsAccount) GetBankId() string {
	return a.BankId
}

// signedPoints returns the balance delta for an entry type.
// points is a positive amount except for adjust, which carries its own sign.
func signedPoints(entryType string, points int64) (int64, error) {
	switch entryType {
	case LedgerEarn, LedgerTransferIn:
		if points <= 0 {
			return 0, utils.NewValidationError("points", "must be positive")
		}
		return points, nil
	case LedgerRedeem, LedgerExpire, LedgerTransferOut:
		if points <= 0 {
			return 0, utils.NewValidationError("points", "must be positive")
		}
		return -points, nil
	case LedgerAdjust:
		if points == 0 {
			return 0, utils.NewValidationError("points", "must not be zero")
		}
		return points, nil
	}
	return 0, utils.NewValidationError("entry_type", "unknown entry type "+entryType)
}

// postPoints locks the account row and appends one ledger entry inside tx.
func postPoints(tx *gorm.DB, bankId string, accountId int, entryType string, points int64, description string) (*PointsLedgerEntry, error) {
	delta, err := signedPoints(entryType, points)
	if err != nil {
		return nil, err
	}
	var account PointsAccount
	if err := tx.Clauses(lockingForUpdate()).
		Where("bank_id = ?", bankId).
		First(&account, accountId).Error; err != nil {
		return nil, notFound(err)
	}
	if account.Status != PointsAccountActive {
		return nil, fmt.Errorf("%w: account is %s", utils.ErrorInvalidTransition, account.Status)
	}
	newBalance := account.Balance + delta
	if newBalance < 0 {
		return nil, utils.ErrorInsufficientPoints
	}

	changes := map[string]interface{}{"balance": newBalance}
	switch entryType {
	case LedgerEarn:
		changes["lifetime_earned"] = account.LifetimeEarned + delta
	case LedgerRedeem:
		changes["lifetime_redeemed"] = account.LifetimeRedeemed - delta
	}
	if err := tx.Model(&account).Updates(changes).Error; err != nil {
		return nil, err
	}

	_, userName := actorFromContext(tx.Statement.Context)
	entry := PointsLedgerEntry{
		BankId:       bankId,
		AccountId:    account.ID,
		ReferenceNo:  utils.NewReferenceNo("PL"),
		EntryType:    entryType,
		Points:       delta,
		BalanceAfter: newBalance,
		Description:  strings.TrimSpace(description),
		CreatedBy:    userName,
	}
	if err := tx.Session(&gorm.Session{NewDB: true}).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func OpenPointsAccount(ctx context.Context, input *NewPointsAccount) (*PointsAccount, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[CustomerTier](ctx, bankId, input.CustomerTierId); err != nil {
		return nil, utils.NewValidationError("customer_tier_id", "customer not found")
	}
	if err := utils.ValidateUnique[PointsAccount](ctx, bankId, "customer_tier_id", input.CustomerTierId, 0); err != nil {
		return nil, err
	}

	account := PointsAccount{
		BankId:         bankId,
		CustomerTierId: input.CustomerTierId,
		AccountNumber:  utils.NewReferenceNo("PA"),
		Status:         PointsAccountActive,
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		if input.OpeningBalance > 0 {
			if _, err := postPoints(tx, bankId, account.ID, LedgerEarn, input.OpeningBalance, "opening balance"); err != nil {
				return err
			}
		}
		return SaveHistoryCreate(tx, account.ID, "points_accounts", account, "opened points account "+account.AccountNumber)
	})
	if err != nil {
		return nil, err
	}
	return GetPointsAccount(ctx, account.ID)
}

func GetPointsAccount(ctx context.Context, id int) (*PointsAccount, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[PointsAccount](ctx, bankId, id, "CustomerTier")
}

func GetPointsAccountByCustomer(ctx context.Context, customerTierId int) (*PointsAccount, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	var account PointsAccount
	err = config.GetDB().WithContext(ctx).
		Where("bank_id = ? AND customer_tier_id = ?", bankId, customerTierId).
		First(&account).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func ListPointsAccounts(ctx context.Context, filter *PointsAccountFilter) (*Page[PointsAccount], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &PointsAccountFilter{}
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&PointsAccount{}).Where("bank_id = ?", bankId)
	if !allFilter(filter.Status) {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if !utils.IsBlank(filter.Search) {
		pattern := likePattern(filter.Search)
		dbCtx = dbCtx.Where("LOWER(account_number) LIKE ? OR customer_tier_id IN (?)", pattern,
			config.GetDB().WithContext(ctx).Model(&CustomerTier{}).Select("id").
				Where("bank_id = ? AND (LOWER(customer_name) LIKE ? OR LOWER(customer_id) LIKE ?)", bankId, pattern, pattern))
	}
	return paginate[PointsAccount](dbCtx, filter.PageInput, "id DESC", "CustomerTier")
}

// PostPoints appends a ledger entry; the balance may never go negative.
func PostPoints(ctx context.Context, accountId int, input *PostPointsInput) (*PointsLedgerEntry, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if input.EntryType == LedgerTransferIn || input.EntryType == LedgerTransferOut {
		return nil, utils.NewValidationError("entry_type", "use a transfer to move points between accounts")
	}
	var entry *PointsLedgerEntry
	err = runInTx(ctx, func(tx *gorm.DB) error {
		var err error
		entry, err = postPoints(tx, bankId, accountId, input.EntryType, input.Points, input.Description)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// setPointsAccountStatus moves a locked account from one of the allowed statuses to to.
// check runs against the locked row before the update.
func setPointsAccountStatus(ctx context.Context, id int, from []string, to string, check func(*PointsAccount) error) (*PointsAccount, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		var account PointsAccount
		if err := tx.Clauses(lockingForUpdate()).
			Where("bank_id = ?", bankId).
			First(&account, id).Error; err != nil {
			return notFound(err)
		}
		if !slices.Contains(from, account.Status) {
			return fmt.Errorf("%w: account is %s", utils.ErrorInvalidTransition, account.Status)
		}
		if check != nil {
			if err := check(&account); err != nil {
				return err
			}
		}
		updated := tx.Model(&PointsAccount{}).
			Where("id = ? AND bank_id = ? AND status = ?", id, bankId, account.Status).
			Update("status", to)
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return utils.ErrorConflict
		}
		return SaveHistoryUpdate(tx, id, "points_accounts", map[string]string{"status": account.Status}, map[string]string{"status": to}, "points account "+to)
	})
	if err != nil {
		return nil, err
	}
	return GetPointsAccount(ctx, id)
}

func FreezePointsAccount(ctx context.Context, id int) (*PointsAccount, error) {
	return setPointsAccountStatus(ctx, id, []string{PointsAccountActive}, PointsAccountFrozen, nil)
}

func UnfreezePointsAccount(ctx context.Context, id int) (*PointsAccount, error) {
	return setPointsAccountStatus(ctx, id, []string{PointsAccountFrozen}, PointsAccountActive, nil)
}

// ClosePointsAccount requires a zero balance, checked on the locked row.
func ClosePointsAccount(ctx context.Context, id int) (*PointsAccount, error) {
	return setPointsAccountStatus(ctx, id, []string{PointsAccountActive, PointsAccountFrozen}, PointsAccountClosed,
		func(account *PointsAccount) error {
			if account.Balance != 0 {
				return fmt.Errorf("%w: points balance must be zero before closing", utils.ErrorInUse)
			}
			return nil
		})
}

func ListPointsLedger(ctx context.Context, accountId int, filter *LedgerFilter) (*Page[PointsLedgerEntry], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &LedgerFilter{}
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&PointsLedgerEntry{}).
		Where("bank_id = ? AND account_id = ?", bankId, accountId)
	if !allFilter(filter.EntryType) {
		dbCtx = dbCtx.Where("entry_type = ?", filter.EntryType)
	}
	if filter.From != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("created_at < ?", filter.To.AddDate(0, 0, 1))
	}
	return paginate[PointsLedgerEntry](dbCtx, filter.PageInput, "id DESC")
}

// LedgerBalance sums the entries of one account; it always equals PointsAccount.Balance.
func LedgerBalance(ctx context.Context, accountId int) (int64, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	err = config.GetDB().WithContext(ctx).Model(&PointsLedgerEntry{}).
		Where("bank_id = ? AND account_id = ?", bankId, accountId).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}
