package models

import "bitbucket.org/mmdatafocus/fleet_backend/utils"

type RedisCleaner interface {
	RemoveInstanceRedis() error // remove one
	RemoveAllRedis() error      // remove company list
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

func (b Budget) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[Budget](b.ID)
}

func (b Budget) RemoveAllRedis() error {
	return utils.RemoveRedisList[Budget](b.CompanyId)
}

func (c EmploymentContract) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[EmploymentContract](c.ID)
}

func (c EmploymentContract) RemoveAllRedis() error {
	return nil
}

func (r ScheduledReport) RemoveInstanceRedis() error {
	return nil
}

func (r ScheduledReport) RemoveAllRedis() error {
	return utils.RemoveRedisList[ScheduledReport](r.CompanyId)
}
