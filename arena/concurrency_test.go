package arena_test

import (
	"testing"

	"github.com/minios/arenakit/arena"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestConcurrentOwners(t *testing.T) {
	const owners = 8
	const iterations = 200

	a := readyArena(t, arena.CreateOptions{})

	var group errgroup.Group
	for i := 0; i < owners; i++ {
		owner := arena.Owner(i)
		group.Go(func() error {
			var addresses []int
			for j := 0; j < iterations; j++ {
				address, err := a.Allocate(64, owner)
				if err != nil {
					return err
				}
				addresses = append(addresses, address)

				if j%2 == 1 {
					err = a.Free(addresses[0])
					if err != nil {
						return err
					}
					addresses = addresses[1:]
				}
			}
			return nil
		})
	}

	group.Go(func() error {
		for j := 0; j < iterations; j++ {
			_, err := a.Stats()
			if err != nil {
				return err
			}

			err = a.Validate()
			if err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, group.Wait())
	require.NoError(t, a.Validate())

	var total int
	for i := 0; i < owners; i++ {
		usage, err := a.OwnerUsage(arena.Owner(i))
		require.NoError(t, err)
		require.GreaterOrEqual(t, usage, 64*iterations/2)

		freed, err := a.FreeOwner(arena.Owner(i))
		require.NoError(t, err)
		require.Equal(t, usage, freed)
		total += freed
	}

	report, err := a.Stats()
	require.NoError(t, err)
	require.Equal(t, report.TotalCapacity, report.FreeBytes)
	require.Equal(t, []arena.BlockInfo{{Address: 0, Size: arena.DefaultCapacity, Owner: arena.NoOwner}}, report.Blocks)
	require.Greater(t, total, 0)
}
