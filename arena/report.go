package arena

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/minios/arenakit/memutils"
	"golang.org/x/exp/slog"
)

// BlockInfo describes one block of the arena's ledger
type BlockInfo struct {
	Address   int
	Size      int
	Allocated bool
	// Owner is NoOwner for free blocks
	Owner Owner
}

// Report is a snapshot of the arena's ledger
type Report struct {
	TotalCapacity int
	FreeBytes     int
	UsedBytes     int
	BlockCount    int
	// Blocks lists every block of the arena in ascending address order
	Blocks []BlockInfo
}

func (r Report) FreePercent() float64 {
	return memutils.Percent(r.FreeBytes, r.TotalCapacity)
}

func (r Report) UsedPercent() float64 {
	return memutils.Percent(r.UsedBytes, r.TotalCapacity)
}

// Stats returns a snapshot of the arena's ledger. It never modifies the arena.
func (a *Arena) Stats() (Report, error) {
	a.logger.Debug("Arena::Stats")

	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return Report{}, errors.Wrap(ErrNotInitialized, "attempted to build a report")
	}

	report := Report{
		TotalCapacity: a.metadata.Size(),
		FreeBytes:     a.metadata.SumFreeSize(),
		UsedBytes:     a.metadata.Size() - a.metadata.SumFreeSize(),
		BlockCount:    a.metadata.RegionCount(),
		Blocks:        make([]BlockInfo, 0, a.metadata.RegionCount()),
	}

	err := a.metadata.VisitAllRegions(func(offset int, size int, owner Owner, free bool) error {
		report.Blocks = append(report.Blocks, BlockInfo{
			Address:   offset,
			Size:      size,
			Allocated: !free,
			Owner:     owner,
		})
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	return report, nil
}

// CalculateStatistics populates stats with aggregate statistics about the arena's ledger.
// Any data already in stats is cleared.
func (a *Arena) CalculateStatistics(stats *memutils.DetailedStatistics) error {
	a.logger.Debug("Arena::CalculateStatistics")

	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return errors.Wrap(ErrNotInitialized, "attempted to calculate statistics")
	}

	stats.Clear()
	a.metadata.AddDetailedStatistics(stats)
	return nil
}

// BuildStatsString produces a JSON document describing the arena. The document always contains
// a Total object with aggregate statistics; if detailedMap is true, it also contains an Arena
// object that lists every block of the ledger.
func (a *Arena) BuildStatsString(detailedMap bool) (string, error) {
	a.logger.Debug("Arena::BuildStatsString", slog.Bool("detailedMap", detailedMap))

	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return "", errors.Wrap(ErrNotInitialized, "attempted to build a stats string")
	}

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.metadata.AddDetailedStatistics(&stats)

	writer := jwriter.NewWriter()
	obj := writer.Object()

	total := obj.Name("Total").Object()
	printDetailedStatistics(&total, &stats)
	total.End()

	if detailedMap {
		arenaObj := obj.Name("Arena").Object()
		a.metadata.BlockJsonData(&arenaObj)
		a.metadata.PrintDetailedMap(&arenaObj)
		arenaObj.End()
	}

	obj.End()

	err := writer.Error()
	if err != nil {
		return "", errors.Wrap(err, "failed to write arena stats")
	}

	return string(writer.Bytes()), nil
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("BlockBytes").Int(stats.BlockBytes)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("UnusedRangeCount").Int(stats.UnusedRangeCount)

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}

	if stats.UnusedRangeCount > 0 {
		json.Name("UnusedRangeSizeMin").Int(stats.UnusedRangeSizeMin)
		json.Name("UnusedRangeSizeMax").Int(stats.UnusedRangeSizeMax)
	}
}
