package workspace

import (
	"sort"

	"github.com/signalnine/sweep/internal/statepoint"
)

// Group is the set of jobs that differ only by seed.
type Group struct {
	Key  statepoint.Statepoint
	Jobs []*Job
}

// Groups partitions jobs into seed groups, ordered by key, members by seed.
func Groups(jobs []*Job) []*Group {
	byKey := map[statepoint.Statepoint]*Group{}
	var groups []*Group
	for _, j := range jobs {
		key := j.sp.Key()
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.Jobs = append(g.Jobs, j)
	}
	for _, g := range groups {
		sort.Slice(g.Jobs, func(i, k int) bool {
			return g.Jobs[i].sp.Seed < g.Jobs[k].sp.Seed
		})
	}
	sort.Slice(groups, func(i, k int) bool {
		return statepoint.Less(groups[i].Key, groups[k].Key)
	})
	return groups
}

// DistinctSeeds counts the seed values present across jobs.
func DistinctSeeds(jobs []*Job) int {
	seeds := map[int]struct{}{}
	for _, j := range jobs {
		seeds[j.sp.Seed] = struct{}{}
	}
	return len(seeds)
}

// AllHave reports whether every job in the group has the named file.
func (g *Group) AllHave(name string) bool {
	for _, j := range g.Jobs {
		if !j.IsFile(name) {
			return false
		}
	}
	return len(g.Jobs) > 0
}
