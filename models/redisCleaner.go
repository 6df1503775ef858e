package models

import (
	"github.com/mmdatafocus/loyalty_backend/utils"
)

type RedisCleaner interface {
	RemoveInstanceRedis() error // remove one
	RemoveAllRedis() error      // remove list if exists
}

// remove both item & list
func RemoveRedisBoth[T RedisCleaner](obj T) error {
	if err := obj.RemoveInstanceRedis(); err != nil {
		return err
	}
	if err := obj.RemoveAllRedis(); err != nil {
		return err
	}
	return nil
}

func (obj TierDefinition) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[TierDefinition](obj.ID)
}

func (obj TierDefinition) RemoveAllRedis() error {
	return utils.RemoveRedisList[TierDefinition](obj.BankId)
}

func (obj Benefit) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Benefit](obj.ID)
}

func (obj Benefit) RemoveAllRedis() error {
	return utils.RemoveRedisList[Benefit](obj.BankId)
}

func (obj Branch) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Branch](obj.ID)
}

func (obj Branch) RemoveAllRedis() error {
	return utils.RemoveRedisList[Branch](obj.BankId)
}

func (obj Parameter) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Parameter](obj.ID)
}

func (obj Parameter) RemoveAllRedis() error {
	return utils.RemoveRedisList[Parameter](obj.BankId)
}

func (obj Role) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Role](obj.ID)
}

func (obj Role) RemoveAllRedis() error {
	return utils.RemoveRedisList[Role](obj.BankId)
}

func (obj CustomerTier) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[CustomerTier](obj.ID)
}

func (obj CustomerTier) RemoveAllRedis() error {
	return nil
}

func (obj User) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[User](obj.ID)
}

func (obj User) RemoveAllRedis() error {
	return nil
}
