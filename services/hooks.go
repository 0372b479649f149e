package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// afterCommit collects side effects that must only run once the
// transaction holding the state change has committed.
type afterCommit struct {
	fns []func()
}

func (a *afterCommit) add(fn func()) {
	a.fns = append(a.fns, fn)
}

// run executes every hook. A panicking hook is logged and the rest still run.
func (a *afterCommit) run() {
	for _, fn := range a.fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					utils.ErrorLogger.Errorf("post-commit hook panicked: %v", r)
				}
			}()
			fn()
		}()
	}
	a.fns = nil
}

// forUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
