// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package grouping partitions a session roster into teams.
//
// Placement rules:
//  1. Players with a fixed group index go into that group, whatever its resulting size.
//  2. The rest, in roster order, top up the fixed groups in ascending index order
//     until each holds groupSize members.
//  3. Anyone still unplaced opens new groups of up to groupSize, numbered from the
//     smallest index >= 1 that is not already taken.
//
// The output only depends on its inputs, so the same roster, size and overrides
// always produce the same grouping.
package grouping

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/AccelByte/extend-play-session/pkg/session"
)

// GroupIDPrefix is prepended to the numeric group index to form a group id.
const GroupIDPrefix = "g"

// GroupID returns the group id for a numeric index.
func GroupID(index int) string {
	return GroupIDPrefix + strconv.Itoa(index)
}

// ComputeGroups partitions roster (user ids in join order) into groups of groupSize.
// fixed maps user id to a forced group index; entries for users not in roster are ignored.
func ComputeGroups(roster []string, groupSize int, fixed map[string]int) (map[string][]string, error) {
	if groupSize < 1 {
		return nil, fmt.Errorf("%w: group size must be at least 1, got %d", session.ErrInvalidArgument, groupSize)
	}
	byIndex := make(map[int][]string)
	var unfixed []string
	seen := make(map[string]bool, len(roster))

	for _, userID := range roster {
		if seen[userID] {
			continue
		}
		seen[userID] = true

		if idx, ok := fixed[userID]; ok {
			if idx < 0 {
				return nil, fmt.Errorf("%w: fixed group index for %s must not be negative, got %d",
					session.ErrInvalidArgument, userID, idx)
			}
			byIndex[idx] = append(byIndex[idx], userID)
			continue
		}
		unfixed = append(unfixed, userID)
	}

	fixedIndexes := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		fixedIndexes = append(fixedIndexes, idx)
	}
	sort.Ints(fixedIndexes)

	for _, idx := range fixedIndexes {
		for len(byIndex[idx]) < groupSize && len(unfixed) > 0 {
			byIndex[idx] = append(byIndex[idx], unfixed[0])
			unfixed = unfixed[1:]
		}
	}

	next := 1
	for len(unfixed) > 0 {
		for {
			if _, taken := byIndex[next]; !taken {
				break
			}
			next++
		}

		n := groupSize
		if n > len(unfixed) {
			n = len(unfixed)
		}
		members := make([]string, n)
		copy(members, unfixed[:n])
		byIndex[next] = members
		unfixed = unfixed[n:]
	}

	groups := make(map[string][]string, len(byIndex))
	for idx, members := range byIndex {
		groups[GroupID(idx)] = members
	}

	return groups, nil
}

// ToSessionGroups converts a computed grouping into the stored representation.
func ToSessionGroups(groups map[string][]string) map[string]session.Group {
	out := make(map[string]session.Group, len(groups))
	for id, members := range groups {
		out[id] = session.Group{MemberUserIDs: members}
	}
	return out
}
