package utils

import (
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/agentbank/ledger_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN_MINUTES"))
	if err != nil || lifespan <= 0 {
		lifespan = 10
	}
	return time.Duration(lifespan) * time.Minute
}

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

func listKey[T any](bankId string) string {
	return GetTypeName[T]() + "List:" + bankId
}

// store bank scoped list
func StoreRedisList[T any](obj []*T, bankId string) error {
	return config.SetRedisObject(listKey[T](bankId), obj, GetCacheLifespan())
}

// returns nil, nil on cache miss or when redis is not connected
func RetrieveRedisList[T any](bankId string) ([]*T, error) {
	var result []*T
	exists, err := config.GetRedisObject(listKey[T](bankId), &result)
	if err != nil || !exists {
		return nil, err
	}
	return result, nil
}

func RemoveRedisList[T any](bankId string) error {
	return config.RemoveRedisKey(listKey[T](bankId))
}
