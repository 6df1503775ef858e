package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ParameterTypeString  = "string"
	ParameterTypeNumber  = "number"
	ParameterTypeBoolean = "boolean"
	ParameterTypeJSON    = "json"
)

type Parameter struct {
	ID          int            `gorm:"primary_key" json:"id"`
	BankId      string         `gorm:"uniqueIndex:idx_parameter_key;size:64;not null" json:"bank_id"`
	Key         string         `gorm:"column:param_key;uniqueIndex:idx_parameter_key;size:100;not null" json:"key"`
	Category    string         `gorm:"index;size:50" json:"category"`
	DataType    string         `gorm:"size:10;not null" json:"data_type"`
	// text, so scalar values such as 250 or true come back as the JSON that was stored
	Value       datatypes.JSON `gorm:"type:text;not null" json:"value"`
	Description string         `gorm:"type:text" json:"description"`
	IsEditable  *bool          `gorm:"not null;default:true" json:"is_editable"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewParameter struct {
	Key         string          `json:"key" binding:"required"`
	Category    string          `json:"category"`
	DataType    string          `json:"data_type" binding:"required"`
	Value       json.RawMessage `json:"value" binding:"required"`
	Description string          `json:"description"`
	IsEditable  *bool           `json:"is_editable"`
}

func (p Parameter) GetBankId() string {
	return p.BankId
}

// checkParameterValue verifies that raw is valid JSON of the declared type.
func checkParameterValue(dataType string, raw json.RawMessage) error {
	if len(raw) == 0 || !json.Valid(raw) {
		return utils.NewValidationError("value", "must be valid JSON")
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return utils.NewValidationError("value", err.Error())
	}
	ok := false
	switch dataType {
	case ParameterTypeString:
		_, ok = v.(string)
	case ParameterTypeNumber:
		_, ok = v.(float64)
	case ParameterTypeBoolean:
		_, ok = v.(bool)
	case ParameterTypeJSON:
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			ok = true
		}
	default:
		return utils.NewValidationError("data_type", "must be string, number, boolean or json")
	}
	if !ok {
		return utils.NewValidationError("value", "does not match data_type "+dataType)
	}
	return nil
}

// validate input for both create & update. (id = 0 for create)
func (input *NewParameter) validate(ctx context.Context, bankId string, id int) error {
	input.Key = strings.TrimSpace(input.Key)
	if input.Key == "" || strings.ContainsAny(input.Key, " \t") {
		return utils.NewValidationError("key", "must not be blank or contain spaces")
	}
	if err := checkParameterValue(input.DataType, input.Value); err != nil {
		return err
	}
	return utils.ValidateUnique[Parameter](ctx, bankId, "param_key", input.Key, id)
}

func CreateParameter(ctx context.Context, input *NewParameter) (*Parameter, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, 0); err != nil {
		return nil, err
	}
	editable := input.IsEditable
	if editable == nil {
		editable = utils.NewTrue()
	}
	param := Parameter{
		BankId:      bankId,
		Key:         input.Key,
		Category:    strings.TrimSpace(input.Category),
		DataType:    input.DataType,
		Value:       datatypes.JSON(input.Value),
		Description: input.Description,
		IsEditable:  editable,
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&param).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, param.ID, "parameters", param, "created parameter "+param.Key)
	})
	if err != nil {
		return nil, err
	}
	if err := param.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &param, nil
}

func UpdateParameter(ctx context.Context, id int, input *NewParameter) (*Parameter, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	param, err := utils.FetchModel[Parameter](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if param.IsEditable != nil && !*param.IsEditable {
		return nil, utils.NewValidationError("key", "parameter "+param.Key+" is not editable")
	}
	if err := input.validate(ctx, bankId, id); err != nil {
		return nil, err
	}
	before := *param

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(param).Updates(map[string]interface{}{
			"Key":         input.Key,
			"Category":    strings.TrimSpace(input.Category),
			"DataType":    input.DataType,
			"Value":       datatypes.JSON(input.Value),
			"Description": input.Description,
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, id, "parameters", before, param, "updated parameter "+param.Key)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*param); err != nil {
		return nil, err
	}
	return param, nil
}

func DeleteParameter(ctx context.Context, id int) (*Parameter, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[Parameter](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if result.IsEditable != nil && !*result.IsEditable {
		return nil, errors.New("parameter is not editable")
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, id, "parameters", result, "deleted parameter "+result.Key)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}
	return result, nil
}

func GetParameter(ctx context.Context, id int) (*Parameter, error) {
	return GetResource[Parameter](ctx, id)
}

func GetParameterByKey(ctx context.Context, key string) (*Parameter, error) {
	params, err := ListAllResource[Parameter](ctx, "category", "param_key")
	if err != nil {
		return nil, err
	}
	for _, p := range params {
		if p.Key == key {
			return p, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func GetParameters(ctx context.Context, category string) ([]*Parameter, error) {
	params, err := ListAllResource[Parameter](ctx, "category", "param_key")
	if err != nil {
		return nil, err
	}
	if allFilter(category) {
		return params, nil
	}
	results := make([]*Parameter, 0)
	for _, p := range params {
		if strings.EqualFold(p.Category, category) {
			results = append(results, p)
		}
	}
	return results, nil
}

// IntParameter reads a number parameter, falling back to def when missing or mistyped.
func IntParameter(ctx context.Context, key string, def int) int {
	p, err := GetParameterByKey(ctx, key)
	if err != nil || p.DataType != ParameterTypeNumber {
		return def
	}
	var v float64
	if err := json.Unmarshal(p.Value, &v); err != nil {
		return def
	}
	return int(v)
}
