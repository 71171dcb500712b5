package cache

import "sync/atomic"

type Stats struct {
	podsHit, podsMiss             atomic.Int64
	streamsHit, streamsMiss       atomic.Int64
	recordsHit, recordsMiss       atomic.Int64
	listsHit, listsMiss           atomic.Int64
	podsSet, streamsSet           atomic.Int64
	recordsSet, listsSet          atomic.Int64
}

type StatsSnapshot struct {
	PodsHit, PodsMiss       int64
	StreamsHit, StreamsMiss int64
	RecordsHit, RecordsMiss int64
	ListsHit, ListsMiss     int64
	PodsSet, StreamsSet     int64
	RecordsSet, ListsSet    int64
}

func (s *Stats) hit(pool string) {
	switch pool {
	case PoolPods:
		s.podsHit.Add(1)
	case PoolStreams:
		s.streamsHit.Add(1)
	case PoolSingleRecords:
		s.recordsHit.Add(1)
	default:
		s.listsHit.Add(1)
	}
}

func (s *Stats) miss(pool string) {
	switch pool {
	case PoolPods:
		s.podsMiss.Add(1)
	case PoolStreams:
		s.streamsMiss.Add(1)
	case PoolSingleRecords:
		s.recordsMiss.Add(1)
	default:
		s.listsMiss.Add(1)
	}
}

func (s *Stats) set(pool string) {
	switch pool {
	case PoolPods:
		s.podsSet.Add(1)
	case PoolStreams:
		s.streamsSet.Add(1)
	case PoolSingleRecords:
		s.recordsSet.Add(1)
	default:
		s.listsSet.Add(1)
	}
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		PodsHit:     s.podsHit.Load(),
		PodsMiss:    s.podsMiss.Load(),
		StreamsHit:  s.streamsHit.Load(),
		StreamsMiss: s.streamsMiss.Load(),
		RecordsHit:  s.recordsHit.Load(),
		RecordsMiss: s.recordsMiss.Load(),
		ListsHit:    s.listsHit.Load(),
		ListsMiss:   s.listsMiss.Load(),
		PodsSet:     s.podsSet.Load(),
		StreamsSet:  s.streamsSet.Load(),
		RecordsSet:  s.recordsSet.Load(),
		ListsSet:    s.listsSet.Load(),
	}
}
