package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil || lifespan <= 0 {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

/*
Keys:
	Type:$id
	TypeList:$companyId
*/

// StoreRedis caches one instance under Type:$id.
func StoreRedis[T any](obj *T, id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, obj, GetCacheLifespan())
}

// RetrieveRedis returns nil when the instance is not cached.
func RetrieveRedis[T any](id int) (*T, error) {
	var result T
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	exists, err := config.GetRedisObject(key, &result)
	if err != nil || !exists {
		return nil, err
	}
	return &result, nil
}

func RemoveRedisItem[T any](id int) error {
	return config.RemoveRedisKey(GetTypeName[T]() + ":" + fmt.Sprint(id))
}

func StoreRedisList[T any](list []*T, companyId string) error {
	key := GetTypeName[T]() + "List:" + companyId
	return config.SetRedisObject(key, list, GetCacheLifespan())
}

func RetrieveRedisList[T any](companyId string) ([]*T, error) {
	var result []*T
	key := GetTypeName[T]() + "List:" + companyId
	exists, err := config.GetRedisObject(key, &result)
	if err != nil || !exists {
		return nil, err
	}
	return result, nil
}

func RemoveRedisList[T any](companyId string) error {
	return config.RemoveRedisKey(GetTypeName[T]() + "List:" + companyId)
}
