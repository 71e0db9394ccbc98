package task

import (
	"context"
	"slices"

	"github.com/fastygo/sitetasks/domain"
)

// ToggleStar adds or removes userID from the task's shortlist. The whole list
// is written back, so two users toggling at the same moment can lose one of
// the toggles remotely.
func (uc *UseCase) ToggleStar(ctx context.Context, taskID, userID string) (*domain.Task, error) {
	if userID == "" {
		return nil, domain.MissingField("user_id")
	}
	return uc.mutate(ctx, taskID, "toggle star", func(current domain.Task) (mutation, error) {
		starred := make([]string, 0, len(current.StarredByUsers)+1)
		if current.IsStarredBy(userID) {
			for _, id := range current.StarredByUsers {
				if id != userID {
					starred = append(starred, id)
				}
			}
		} else {
			starred = append(slices.Clone(current.StarredByUsers), userID)
		}
		return mutation{patch: domain.TaskPatch{StarredByUsers: starred}}, nil
	})
}
