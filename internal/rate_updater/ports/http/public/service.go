package public

import "github.com/langowen/ratepresence/internal/rate_updater/updater"

type Service interface {
	LastResult() *updater.Result
	State() updater.State
}
