package main

import (
	"context"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-sif/liquid/application"
	"github.com/go-sif/liquid/rowers"
)

// Degrees expands seed to every user within the given degrees of separation,
// over the (project, user) edge list stored under namespace. Every node of
// the cluster must call Degrees, and every node returns the same users.
func Degrees(ctx context.Context, app *application.Application, namespace string, projectCol int, userCol int, seed []uint, degrees int) (*bitset.BitSet, error) {
	users := bitset.New(0)
	for _, u := range seed {
		users.Set(u)
	}
	projects := bitset.New(0)
	for d := 0; d < degrees; d++ {
		pr, isTerminus, err := application.PMap(ctx, app, namespace, rowers.NewProjectRower(projectCol, userCol, users, projects), nil)
		if err != nil {
			return nil, err
		}
		// only the terminus holds a result, every other node gets nil
		var found *bitset.BitSet
		if isTerminus {
			found = pr.NewProjects
		}
		newProjects, err := application.Share(ctx, app, found, isTerminus, nil)
		if err != nil {
			return nil, err
		}
		projects = projects.Union(newProjects)

		ur, isTerminus, err := application.PMap(ctx, app, namespace, rowers.NewUserRower(projectCol, userCol, users, projects), nil)
		if err != nil {
			return nil, err
		}
		found = nil
		if isTerminus {
			found = ur.NewUsers
		}
		newUsers, err := application.Share(ctx, app, found, isTerminus, nil)
		if err != nil {
			return nil, err
		}
		users = users.Union(newUsers)
		// every node sees the same shared sets, so they all stop together
		if newUsers.None() {
			break
		}
	}
	return users, nil
}
