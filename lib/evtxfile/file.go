package evtxfile

import (
	"bytes"
	"sync/atomic"

	"github.com/libyal/libevtx-sub000/lib/containers"
	"github.com/libyal/libevtx-sub000/lib/diskio"
	"github.com/libyal/libevtx-sub000/lib/evtxerr"
	"github.com/libyal/libevtx-sub000/lib/evtxrec"
)

// DefaultChunkCacheSize is the "Caching" subsection's default (spec
// §4.2: "Cache size is configurable (default: 8 chunks)").
const DefaultChunkCacheSize = 8

// File is an opened event log (spec component C10, "File / IO
// handle"). One File owns exactly one diskio.File backing handle; a
// consumer that wants to read several .evtx files concurrently opens
// one File per path (spec §5 "Scheduling model": no shared mutable
// state across handles).
type File struct {
	backing  diskio.File[int64]
	codepage int
	header   *FileHeader

	chunkCache *containers.LRUCache[int, *Chunk]

	// liveChunkOffsets are the chunks within the header-declared/tolerance
	// bounds, one offset per chunk regardless of whether it validated;
	// recoveryChunkOffsets are chunk-signature positions found by
	// scanning the tail of a dirty file beyond that range (spec §4.1
	// "excess blocks are scanned as recovery candidates").
	liveChunkOffsets     []int64
	recoveryChunkOffsets []int64

	liveRecordIndex []recordAddr
	recoveredIndex  []recordAddr

	// liveChunkFailed is set once per slot during buildIndex, independent
	// of LRU cache residency — IsCorrupted must see a chunk's validation
	// outcome even after the cache has long since evicted it (spec §4.1
	// "is_corrupted": true iff any chunk failed validation).
	liveChunkFailed []bool

	aborted int32
}

// recordAddr locates a record without holding it (or its owning
// chunk) in memory: (chunk offset list index, record's position
// within that chunk once parsed).
type recordAddr struct {
	chunkSlot int // index into liveChunkOffsets or recoveryChunkOffsets
	recIndex  int
}

// Open reads and validates the 128-byte file header, then indexes
// (without yet fully materializing) every live and recoverable chunk
// (spec §4.1 "open"). cacheSize <= 0 selects DefaultChunkCacheSize.
func Open(backing diskio.File[int64], cacheSize int) (*File, error) {
	hdrBuf := make([]byte, FileHeaderSize)
	if _, err := backing.ReadAt(hdrBuf, 0); err != nil {
		return nil, evtxerr.Wrap(evtxerr.KindIO, "evtxfile.Open", 0, err)
	}
	header, err := ParseFileHeader(hdrBuf)
	if err != nil {
		return nil, err
	}

	if cacheSize <= 0 {
		cacheSize = DefaultChunkCacheSize
	}
	f := &File{
		backing:    backing,
		codepage:   0,
		header:     header,
		chunkCache: containers.NewLRUCache[int, *Chunk](cacheSize),
	}

	declaredCount := header.EffectiveChunkCount()
	fileSize := backing.Size()
	physicalCount := uint64(0)
	if fileSize > FirstChunkOffset {
		physicalCount = uint64(fileSize-FirstChunkOffset) / ChunkSize
	}

	tolerantCount := declaredCount
	if header.IsDirty() && containers.CmpUint(physicalCount, tolerantCount) > 0 {
		tolerantCount = physicalCount
	}
	if containers.CmpUint(tolerantCount, physicalCount) > 0 {
		tolerantCount = physicalCount
	}

	for i := uint64(0); i < tolerantCount; i++ {
		f.liveChunkOffsets = append(f.liveChunkOffsets, FirstChunkOffset+int64(i)*ChunkSize)
	}
	if header.IsDirty() {
		tailStart := FirstChunkOffset + int64(tolerantCount)*ChunkSize
		offs, err := f.scanRecoveryChunkOffsets(tailStart)
		if err != nil {
			return nil, err
		}
		f.recoveryChunkOffsets = offs
	}

	if err := f.buildIndex(); err != nil {
		return nil, err
	}
	return f, nil
}

// scanRecoveryChunkOffsets finds every chunk-signature occurrence at
// or past tailStart, the tail of a dirty file beyond the
// header/tolerance-declared chunk range (spec §4.1 "excess blocks are
// scanned as recovery candidates"). Signature occurrences are taken as
// candidate chunk starts rather than assumed to fall on exact
// ChunkSize boundaries, since a dirty file's tail is precisely the
// part of the file whose layout can't be trusted.
func (f *File) scanRecoveryChunkOffsets(tailStart int64) ([]int64, error) {
	fileSize := f.backing.Size()
	if fileSize <= tailStart {
		return nil, nil
	}
	tail := make([]byte, fileSize-tailStart)
	if _, err := f.backing.ReadAt(tail, tailStart); err != nil {
		return nil, evtxerr.Wrap(evtxerr.KindIO, "evtxfile.File.scanRecoveryChunkOffsets", tailStart, err)
	}
	rel, err := evtxrec.ScanChunkOffsets(bytes.NewReader(tail))
	if err != nil {
		return nil, evtxerr.Wrap(evtxerr.KindIO, "evtxfile.File.scanRecoveryChunkOffsets", tailStart, err)
	}
	out := make([]int64, len(rel))
	for i, o := range rel {
		out[i] = tailStart + o
	}
	return out, nil
}

// buildIndex loads every live/recovery chunk once, through readChunkAt
// and so through the LRU cache, to count and order records (spec §4.1
// "Record-index ordering": ascending chunk index, then ascending record
// number within chunk). With more chunks than the cache holds, the
// early chunks are evicted again before buildIndex returns.
func (f *File) buildIndex() error {
	f.liveChunkFailed = make([]bool, len(f.liveChunkOffsets))
	for slot, off := range f.liveChunkOffsets {
		if f.abortRequested() {
			return evtxerr.New(evtxerr.KindAborted, "evtxfile.File.buildIndex", off, "aborted")
		}
		c, err := f.readChunkAt(slot, off)
		if err != nil {
			return err
		}
		f.liveChunkFailed[slot] = c.RecoveryOnly || c.RecordsCRCFailed
		if !c.RecoveryOnly {
			for i := range c.Records {
				f.liveRecordIndex = append(f.liveRecordIndex, recordAddr{chunkSlot: slot, recIndex: i})
			}
		} else {
			f.recoveredIndex = append(f.recoveredIndex, recoveredAddrsForRecoveryChunk(slot, c)...)
		}
	}
	for i, off := range f.recoveryChunkOffsets {
		if f.abortRequested() {
			return evtxerr.New(evtxerr.KindAborted, "evtxfile.File.buildIndex", off, "aborted")
		}
		slot := len(f.liveChunkOffsets) + i
		c, err := f.readChunkAt(slot, off)
		if err != nil {
			return err
		}
		f.recoveredIndex = append(f.recoveredIndex, recoveredAddrsForRecoveryChunk(slot, c)...)
	}
	return nil
}

func recoveredAddrsForRecoveryChunk(slot int, c *Chunk) []recordAddr {
	out := make([]recordAddr, len(c.Records))
	for i := range c.Records {
		out[i] = recordAddr{chunkSlot: slot, recIndex: i}
	}
	return out
}

// readChunkAt loads, validates, and caches the chunk at file offset
// off (spec §4.2 "Read the 65536-byte chunk on demand"). slot
// identifies it uniquely across both the live and recovery offset
// lists, used as the LRU cache key.
func (f *File) readChunkAt(slot int, off int64) (*Chunk, error) {
	if c, ok := f.chunkCache.Get(slot); ok {
		return c, nil
	}
	buf := make([]byte, ChunkSize)
	n, err := f.backing.ReadAt(buf, off)
	if err != nil && n == 0 {
		return nil, evtxerr.Wrap(evtxerr.KindIO, "evtxfile.readChunkAt", off, err)
	}
	buf = buf[:n]
	if n < ChunkSize {
		padded := make([]byte, ChunkSize)
		copy(padded, buf)
		buf = padded
	}
	c := newChunk(slot, off, buf, f.codepage, f.abortRequested)
	f.chunkCache.Add(slot, c)
	return c, nil
}

func (f *File) chunkOffsetForSlot(slot int) int64 {
	if slot < len(f.liveChunkOffsets) {
		return f.liveChunkOffsets[slot]
	}
	return f.recoveryChunkOffsets[slot-len(f.liveChunkOffsets)]
}

// FormatVersion returns (major, minor), e.g. (3, 1) (spec §4.1
// "format_version").
func (f *File) FormatVersion() (major, minor uint16) {
	return uint16(f.header.MajorVersion), uint16(f.header.MinorVersion)
}

// ASCIICodepage returns the Windows codepage number used to decode
// StringByteStream values (spec §3 "File descriptor").
func (f *File) ASCIICodepage() int { return f.codepage }

// SetASCIICodepage sets the per-file codepage (spec §9 "retain this
// as a per-file setting only; deprecate the global" — this File never
// consults any process-wide codepage state). Chunks already cached
// carry the codepage they were decoded with, so the cache is purged
// and later record reads re-read their chunks with cp.
func (f *File) SetASCIICodepage(cp int) {
	f.codepage = cp
	f.chunkCache.Purge()
}

// Flags returns the raw file-flags word (spec §4.1 "flags() -> u32").
func (f *File) Flags() uint32 { return uint32(f.header.FileFlags) }

// IsCorrupted reports whether the dirty flag is set or any chunk
// failed validation (spec §4.1 "is_corrupted"). The per-chunk outcome
// is recorded once in buildIndex and consulted here regardless of
// whether that chunk is still resident in the LRU cache — a file with
// more chunks than the cache holds would otherwise silently lose an
// early chunk's failure once buildIndex evicted it.
func (f *File) IsCorrupted() bool {
	if f.header.IsDirty() {
		return true
	}
	for _, failed := range f.liveChunkFailed {
		if failed {
			return true
		}
	}
	return len(f.recoveryChunkOffsets) > 0
}

// NumberOfChunks is spec §4.1 "number_of_chunks": the count of live
// chunk slots indexed at open, regardless of whether any of them
// failed validation.
func (f *File) NumberOfChunks() int { return len(f.liveChunkOffsets) }

// ChunkRecordCounts returns the number of live records found in each
// live chunk slot, in ascending chunk order, for per-chunk diagnostic
// reporting (spec §6 "evtxinfo -v"). It is derived purely from the
// already-built record index, so it costs nothing beyond buildIndex.
func (f *File) ChunkRecordCounts() []int {
	counts := make([]int, len(f.liveChunkOffsets))
	for _, addr := range f.liveRecordIndex {
		counts[addr.chunkSlot]++
	}
	return counts
}

// NumberOfRecords is spec §4.1 "number_of_records".
func (f *File) NumberOfRecords() uint64 { return uint64(len(f.liveRecordIndex)) }

// NumberOfRecoveredRecords is spec §4.1 "number_of_recovered_records".
func (f *File) NumberOfRecoveredRecords() uint64 { return uint64(len(f.recoveredIndex)) }

// Record returns the i'th live record, 0-based (spec §4.1 "record(i)").
func (f *File) Record(i uint64) (*Record, error) {
	return f.recordAt(f.liveRecordIndex, i)
}

// RecoveredRecord returns the i'th recovered record, 0-based (spec
// §4.1 "recovered_record(i)").
func (f *File) RecoveredRecord(i uint64) (*Record, error) {
	return f.recordAt(f.recoveredIndex, i)
}

func (f *File) recordAt(index []recordAddr, i uint64) (*Record, error) {
	if i >= uint64(len(index)) {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxfile.File.Record", int64(i), "record index out of range")
	}
	addr := index[i]
	c, err := f.readChunkAt(addr.chunkSlot, f.chunkOffsetForSlot(addr.chunkSlot))
	if err != nil {
		return nil, err
	}
	if addr.recIndex >= len(c.Records) {
		return nil, evtxerr.New(evtxerr.KindOutOfBounds, "evtxfile.File.Record", int64(i), "chunk was evicted and re-read with a different record count")
	}
	return c.Records[addr.recIndex], nil
}

// SignalAbort requests that any in-progress scan (recovery scanning in
// particular, which can walk an arbitrarily large dirty file) stop at
// its next checkpoint. It is safe to call from another goroutine;
// there is otherwise no concurrency within a File (spec §5 "Scheduling
// model").
func (f *File) SignalAbort() { atomic.StoreInt32(&f.aborted, 1) }

func (f *File) abortRequested() bool { return atomic.LoadInt32(&f.aborted) != 0 }

// Close releases the backing handle.
func (f *File) Close() error { return f.backing.Close() }
