package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"

	ChangeTypeUpgrade   = "upgrade"
	ChangeTypeDowngrade = "downgrade"
)

const reviewLockTTL = 15 * time.Second

type TierReview struct {
	ID             int            `gorm:"primary_key" json:"id"`
	BankId         string         `gorm:"index;size:64;not null" json:"bank_id"`
	CustomerTierId int            `gorm:"index;not null" json:"customer_tier_id"`
	FromTierCode   string         `gorm:"size:32;not null" json:"from_tier_code"`
	FromScore      int            `gorm:"not null" json:"from_score"`
	ToTierCode     string         `gorm:"size:32;not null" json:"to_tier_code"`
	ToScore        int            `gorm:"not null" json:"to_score"`
	ChangeType     string         `gorm:"size:10;not null" json:"change_type"`
	Reason         string         `gorm:"type:text" json:"reason"`
	Status         string         `gorm:"index;size:10;not null;default:'pending'" json:"status"`
	ReviewerId     int            `json:"reviewer_id"`
	ReviewerName   string         `gorm:"size:100" json:"reviewer_name"`
	Comment        string         `gorm:"type:text" json:"comment"`
	ReviewedAt     *time.Time     `json:"reviewed_at"`
	WorkflowId     string         `gorm:"size:100" json:"workflow_id"`
	Snapshot       datatypes.JSON `json:"snapshot"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	CustomerTier *CustomerTier `gorm:"foreignKey:CustomerTierId" json:"customer_tier,omitempty"`
}

type NewTierReview struct {
	CustomerTierId int    `json:"customer_tier_id" binding:"required"`
	ToScore        int    `json:"to_score" binding:"min=0"`
	ToTierCode     string `json:"to_tier_code"`
	Reason         string `json:"reason"`
}

// ReviewDecision is what a reviewer submits. It travels through the Temporal signal as-is.
type ReviewDecision struct {
	Status       string `json:"status"`
	Comment      string `json:"comment"`
	ReviewerId   int    `json:"reviewer_id"`
	ReviewerName string `json:"reviewer_name"`
}

type TierReviewFilter struct {
	Status         string `form:"status"`
	CustomerTierId int    `form:"customer_tier_id"`
	ChangeType     string `form:"change_type"`
	Search         string `form:"search"`
	PageInput
}

func (r TierReview) GetBankId() string {
	return r.BankId
}

func (r TierReview) IsTerminal() bool {
	return r.Status == ReviewStatusApproved || r.Status == ReviewStatusRejected
}

// Validate checks the decision itself; the comment is required for both outcomes.
func (d ReviewDecision) Validate() error {
	if d.Status != ReviewStatusApproved && d.Status != ReviewStatusRejected {
		return utils.NewValidationError("status", "decision must be approved or rejected")
	}
	if utils.IsBlank(d.Comment) {
		return utils.ErrorCommentRequired
	}
	return nil
}

// CreateTierReview opens a pending review for a proposed tier change.
func CreateTierReview(ctx context.Context, input *NewTierReview) (*TierReview, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	customer, err := utils.FetchModel[CustomerTier](ctx, bankId, input.CustomerTierId)
	if err != nil {
		return nil, err
	}
	if customer.Status == CustomerStatusInactive {
		return nil, errors.New("customer is inactive")
	}
	tiers, err := GetTierDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	var target *TierDefinition
	if strings.TrimSpace(input.ToTierCode) != "" {
		code := utils.NormalizeCode(input.ToTierCode)
		for _, t := range tiers {
			if t.Code == code {
				target = t
			}
		}
		if target == nil {
			return nil, utils.NewValidationError("to_tier_code", "tier not found")
		}
		score, err := scoreForTargetTier(target, input.ToScore, customer.CurrentScore)
		if err != nil {
			return nil, err
		}
		input.ToScore = score
	} else {
		target, err = resolveTier(tiers, input.ToScore)
		if err != nil {
			return nil, utils.NewValidationError("to_score", "no active tier covers this score")
		}
	}
	if target.Code == customer.CurrentTierCode {
		return nil, utils.NewValidationError("to_tier_code", "customer is already in tier "+target.Code)
	}

	fromRank, _ := tierRank(tiers, customer.CurrentTierCode)
	changeType := ChangeTypeUpgrade
	if target.MinScore < fromRank {
		changeType = ChangeTypeDowngrade
	}

	review := TierReview{
		BankId:         bankId,
		CustomerTierId: customer.ID,
		FromTierCode:   customer.CurrentTierCode,
		FromScore:      customer.CurrentScore,
		ToTierCode:     target.Code,
		ToScore:        input.ToScore,
		ChangeType:     changeType,
		Reason:         strings.TrimSpace(input.Reason),
		Status:         ReviewStatusPending,
	}
	if snapshot, err := datatypesJSON(customer); err == nil {
		review.Snapshot = snapshot
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&TierReview{}).
			Where("bank_id = ? AND customer_tier_id = ? AND status = ?", bankId, customer.ID, ReviewStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("%w: customer already has a pending review", utils.ErrorConflict)
		}
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		if err := tx.Model(&CustomerTier{}).Where("id = ?", customer.ID).
			Update("status", CustomerStatusUnderReview).Error; err != nil {
			return err
		}
		if err := SaveHistoryCreate(tx, review.ID, "tier_reviews", review,
			fmt.Sprintf("%s review %s -> %s", changeType, review.FromTierCode, review.ToTierCode)); err != nil {
			return err
		}
		return enqueueEvent(tx, bankId, EventTierReviewCreated, "tier_reviews", review.ID, review)
	})
	if err != nil {
		return nil, err
	}
	if err := customer.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return &review, nil
}

// scoreForTargetTier picks the score stored with a review aimed at an explicit tier.
// A given score must fall inside the tier; without one the current score is kept,
// clamped to the tier's range.
func scoreForTargetTier(target *TierDefinition, requested, current int) (int, error) {
	if requested > 0 {
		if !target.Contains(requested) {
			return 0, utils.NewValidationError("to_score",
				fmt.Sprintf("score %d is outside tier %s (%d-%d)", requested, target.Code, target.MinScore, target.MaxScore))
		}
		return requested, nil
	}
	switch {
	case current < target.MinScore:
		return target.MinScore, nil
	case current > target.MaxScore:
		return target.MaxScore, nil
	}
	return current, nil
}

// SetTierReviewWorkflowId records the durable workflow that owns the review.
func SetTierReviewWorkflowId(ctx context.Context, id int, workflowId string) error {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return err
	}
	return config.GetDB().WithContext(ctx).Model(&TierReview{}).
		Where("id = ? AND bank_id = ?", id, bankId).
		Update("workflow_id", workflowId).Error
}

// CheckReviewDecidable runs the checks a decision must pass before it is queued or applied.
func CheckReviewDecidable(ctx context.Context, id int, decision ReviewDecision) (*TierReview, error) {
	if err := decision.Validate(); err != nil {
		return nil, err
	}
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	review, err := utils.FetchModel[TierReview](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if review.Status != ReviewStatusPending {
		return nil, fmt.Errorf("%w: review is already %s", utils.ErrorInvalidTransition, review.Status)
	}
	return review, nil
}

func ApproveTierReview(ctx context.Context, id int, comment string) (*TierReview, error) {
	userId, userName := actorFromContext(ctx)
	return ApplyReviewDecision(ctx, id, ReviewDecision{
		Status: ReviewStatusApproved, Comment: comment, ReviewerId: userId, ReviewerName: userName,
	})
}

func RejectTierReview(ctx context.Context, id int, comment string) (*TierReview, error) {
	userId, userName := actorFromContext(ctx)
	return ApplyReviewDecision(ctx, id, ReviewDecision{
		Status: ReviewStatusRejected, Comment: comment, ReviewerId: userId, ReviewerName: userName,
	})
}

// ApplyReviewDecision moves a pending review to approved or rejected.
// Concurrent reviewers are serialized by a redis lock and a conditional update on status;
// the loser gets ErrorInvalidTransition or ErrorConflict.
func ApplyReviewDecision(ctx context.Context, id int, decision ReviewDecision) (*TierReview, error) {
	if _, err := CheckReviewDecidable(ctx, id, decision); err != nil {
		return nil, err
	}
	bankId, _ := requireBankId(ctx)

	release, err := config.ObtainLock(ctx, fmt.Sprintf("TierReview:%d:decision", id), reviewLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrorConflict, err)
	}
	defer release()

	comment := strings.TrimSpace(decision.Comment)
	now := time.Now().UTC()
	var review TierReview
	var customer CustomerTier

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("bank_id = ?", bankId).First(&review, id).Error; err != nil {
			return notFound(err)
		}
		if review.Status != ReviewStatusPending {
			return fmt.Errorf("%w: review is already %s", utils.ErrorInvalidTransition, review.Status)
		}

		updated := tx.Model(&TierReview{}).
			Where("id = ? AND bank_id = ? AND status = ?", id, bankId, ReviewStatusPending).
			Updates(map[string]interface{}{
				"status":        decision.Status,
				"comment":       comment,
				"reviewer_id":   decision.ReviewerId,
				"reviewer_name": decision.ReviewerName,
				"reviewed_at":   &now,
			})
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return utils.ErrorConflict
		}

		if err := tx.Where("bank_id = ?", bankId).First(&customer, review.CustomerTierId).Error; err != nil {
			return notFound(err)
		}
		changes := map[string]interface{}{"status": CustomerStatusActive}
		if decision.Status == ReviewStatusApproved {
			status := CustomerStatusUpgraded
			if review.ChangeType == ChangeTypeDowngrade {
				status = CustomerStatusDowngraded
			}
			changes = map[string]interface{}{
				"previous_tier_code": customer.CurrentTierCode,
				"previous_score":     customer.CurrentScore,
				"current_tier_code":  review.ToTierCode,
				"current_score":      review.ToScore,
				"status":             status,
				"last_evaluated_at":  &now,
			}
		}
		if err := tx.Model(&customer).Updates(changes).Error; err != nil {
			return err
		}

		actionType := HistoryActionReject
		if decision.Status == ReviewStatusApproved {
			actionType = HistoryActionApprove
		}
		review.Status = decision.Status
		review.Comment = comment
		review.ReviewerId = decision.ReviewerId
		review.ReviewerName = decision.ReviewerName
		review.ReviewedAt = &now
		if err := createHistory(tx, actionType, review.ID, "tier_reviews", nil, review, comment); err != nil {
			return err
		}
		return enqueueEvent(tx, bankId, EventTierReviewDecided, "tier_reviews", review.ID, map[string]interface{}{
			"review_id":      review.ID,
			"customer_id":    customer.CustomerId,
			"status":         review.Status,
			"from_tier_code": review.FromTierCode,
			"to_tier_code":   review.ToTierCode,
			"reviewer_name":  review.ReviewerName,
		})
	})
	if err != nil {
		return nil, err
	}
	if err := customer.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	review.CustomerTier = &customer
	return &review, nil
}

func GetTierReview(ctx context.Context, id int) (*TierReview, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[TierReview](ctx, bankId, id, "CustomerTier")
}

func ListTierReviews(ctx context.Context, filter *TierReviewFilter) (*Page[TierReview], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &TierReviewFilter{}
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&TierReview{}).Where("tier_reviews.bank_id = ?", bankId)
	if !allFilter(filter.Status) {
		dbCtx = dbCtx.Where("tier_reviews.status = ?", filter.Status)
	}
	if filter.CustomerTierId > 0 {
		dbCtx = dbCtx.Where("tier_reviews.customer_tier_id = ?", filter.CustomerTierId)
	}
	if !allFilter(filter.ChangeType) {
		dbCtx = dbCtx.Where("tier_reviews.change_type = ?", filter.ChangeType)
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		dbCtx = dbCtx.Where("tier_reviews.customer_tier_id IN (?)",
			config.GetDB().WithContext(ctx).Model(&CustomerTier{}).Select("id").
				Where("bank_id = ? AND (LOWER(customer_name) LIKE ? OR LOWER(customer_id) LIKE ?)", bankId, pattern, pattern))
	}
	page, err := paginate[TierReview](dbCtx, filter.PageInput, "tier_reviews.id DESC", "CustomerTier")
	if err != nil {
		return nil, err
	}
	return page, nil
}

// HasPendingReview reports whether the customer is waiting for a decision.
func HasPendingReview(ctx context.Context, customerTierId int) (bool, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return false, err
	}
	count, err := utils.ResourceCountWhere[TierReview](ctx, bankId, "customer_tier_id = ? AND status = ?", customerTierId, ReviewStatusPending)
	return count > 0, err
}
