package models

import "github.com/mmdatafocus/loyalty_backend/utils"

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

func (b Branch) GetId() int {
	return b.ID
}

func (b Branch) GetDefault(id int) Data {
	return Branch{
		ID:       id,
		Name:     "Unassigned",
		IsActive: utils.NewFalse(),
	}
}

func (t TierDefinition) GetId() int {
	return t.ID
}

func (t TierDefinition) GetDefault(id int) Data {
	return TierDefinition{
		ID:       id,
		IsActive: utils.NewFalse(),
	}
}

func (c CustomerTier) GetId() int {
	return c.ID
}

func (c CustomerTier) GetDefault(id int) Data {
	return CustomerTier{
		ID:     id,
		Status: CustomerStatusInactive,
	}
}

func (b Benefit) GetId() int {
	return b.ID
}

func (b Benefit) GetDefault(id int) Data {
	return Benefit{
		ID:       id,
		IsActive: utils.NewFalse(),
	}
}
