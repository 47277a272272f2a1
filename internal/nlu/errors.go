package nlu

import "github.com/voxrun/assistant/internal/apperr"

func errDependencyUnavailable(plugin, detail string) error {
	return apperr.New(apperr.ErrDependencyUnavailable, "%s: %s", plugin, detail)
}
