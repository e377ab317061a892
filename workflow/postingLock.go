package workflow

import (
	"gorm.io/gorm"
)

// acquireAdvisoryLock takes a MySQL named lock, waiting up to waitSeconds.
// GET_LOCK is connection-scoped, so tx must be the handle that does the work.
func acquireAdvisoryLock(tx *gorm.DB, lockName string, waitSeconds int) (bool, error) {
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, ?)", lockName, waitSeconds).Scan(&ok).Error; err != nil {
		return false, err
	}
	return ok == 1, nil
}

func releaseAdvisoryLock(tx *gorm.DB, lockName string) {
	var released int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error
}
