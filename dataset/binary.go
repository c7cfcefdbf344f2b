package dataset

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/ezoic/gbdtcore/bin"
	"github.com/ezoic/gbdtcore/core/model"
	gbdterrors "github.com/ezoic/gbdtcore/pkg/errors"
)

// header mirrors spec.md §6's binary header record exactly, byte for
// byte, confirmed against original_source/src/io/dataset.cpp's
// SaveBinaryFile.
type header struct {
	GlobalNumData    uint64
	IsEnableSparse   uint8
	MaxBin           int32
	NumData          int32
	NumFeatures      int32
	NumTotalFeatures int32
}

const headerFixedSize = 8 + 1 + 4 + 4 + 4 + 4 // GlobalNumData..NumTotalFeatures

// SaveBinaryFile writes ds to w in spec.md §6's layout: a size-prefixed
// header (global row count, sparse flag, max_bin, per-feature counts,
// used_feature_map, feature name records), a size-prefixed metadata
// blob (labels/weights/query boundaries/init scores), then one
// size-prefixed blob per used feature (its bin mapper followed by its
// bin data). globalNumData is the row count across every distributed
// worker's shard; it equals ds.NumData() in the non-distributed case.
func SaveBinaryFile(w io.Writer, ds *Dataset, globalNumData uint64, maxBin int, isEnableSparse bool) error {
	var headerBuf bytes.Buffer
	h := header{
		GlobalNumData:    globalNumData,
		MaxBin:           int32(maxBin),
		NumData:          int32(ds.numData),
		NumFeatures:      int32(len(ds.Columns)),
		NumTotalFeatures: int32(ds.numTotalFeatures),
	}
	if isEnableSparse {
		h.IsEnableSparse = 1
	}
	if err := binary.Write(&headerBuf, binary.LittleEndian, h); err != nil {
		return gbdterrors.NewIOError("write", "header", err)
	}

	if err := binary.Write(&headerBuf, binary.LittleEndian, uint64(len(ds.UsedFeatureMap))); err != nil {
		return gbdterrors.NewIOError("write", "used_feature_map_len", err)
	}
	for _, v := range ds.UsedFeatureMap {
		if err := binary.Write(&headerBuf, binary.LittleEndian, v); err != nil {
			return gbdterrors.NewIOError("write", "used_feature_map", err)
		}
	}
	for _, name := range ds.FeatureNames {
		if err := writeString(&headerBuf, name); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(headerBuf.Len())); err != nil {
		return gbdterrors.NewIOError("write", "size_of_header", err)
	}
	if _, err := w.Write(headerBuf.Bytes()); err != nil {
		return gbdterrors.NewIOError("write", "header", err)
	}

	metaBuf, err := encodeMetadata(ds)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(metaBuf))); err != nil {
		return gbdterrors.NewIOError("write", "size_of_metadata", err)
	}
	if _, err := w.Write(metaBuf); err != nil {
		return gbdterrors.NewIOError("write", "metadata", err)
	}

	for i, col := range ds.Columns {
		blob, err := encodeFeature(ds.Mappers[i], col, maxBin)
		if err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(len(blob))); err != nil {
			return gbdterrors.NewIOError("write", "size_of_feature", err)
		}
		if _, err := w.Write(blob); err != nil {
			return gbdterrors.NewIOError("write", "feature", err)
		}
	}
	return nil
}

// LoadBinaryFile reads back a file written by SaveBinaryFile. Every
// section's declared size prefix is checked against the bytes actually
// available before that section is parsed, per spec.md §9's "validate
// section sizes against size_of_*" re-architecture note.
func LoadBinaryFile(r io.Reader) (*Dataset, error) {
	sizeOfHeader, err := readU64(r, "size_of_header")
	if err != nil {
		return nil, err
	}
	headerBuf, err := readExact(r, sizeOfHeader, "header")
	if err != nil {
		return nil, err
	}
	hr := bytes.NewReader(headerBuf)

	var h header
	if err := binary.Read(hr, binary.LittleEndian, &h); err != nil {
		return nil, gbdterrors.NewIOFormatError("dataset", "header", int64(headerFixedSize), int64(len(headerBuf)))
	}

	usedLen, err := readU64(hr, "used_feature_map_len")
	if err != nil {
		return nil, err
	}
	usedFeatureMap := make([]int32, usedLen)
	for i := range usedFeatureMap {
		if err := binary.Read(hr, binary.LittleEndian, &usedFeatureMap[i]); err != nil {
			return nil, gbdterrors.NewIOFormatError("dataset", "used_feature_map", int64(usedLen)*4, int64(hr.Len()))
		}
	}

	names := make([]string, h.NumTotalFeatures)
	for i := range names {
		name, err := readString(hr)
		if err != nil {
			return nil, gbdterrors.NewIOFormatError("dataset", "feature_name", 0, 0)
		}
		names[i] = name
	}

	sizeOfMeta, err := readU64(r, "size_of_metadata")
	if err != nil {
		return nil, err
	}
	metaBuf, err := readExact(r, sizeOfMeta, "metadata")
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		state:            model.NewStateManager(),
		numData:          int(h.NumData),
		numTotalFeatures: int(h.NumTotalFeatures),
		UsedFeatureMap:   usedFeatureMap,
		FeatureNames:     names,
		Mappers:          make([]*bin.Mapper, h.NumFeatures),
		Columns:          make([]*bin.Column, h.NumFeatures),
	}
	if err := decodeMetadata(metaBuf, ds); err != nil {
		return nil, err
	}

	for i := 0; i < int(h.NumFeatures); i++ {
		sizeOfFeature, err := readU64(r, "size_of_feature")
		if err != nil {
			return nil, err
		}
		blob, err := readExact(r, sizeOfFeature, "feature")
		if err != nil {
			return nil, err
		}
		mapper, col, err := decodeFeature(blob, i, int(h.NumData), int(h.MaxBin))
		if err != nil {
			return nil, err
		}
		ds.Mappers[i] = mapper
		ds.Columns[i] = col
	}

	ds.state.SetReady()
	return ds, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, int32(len(s))); err != nil {
		return gbdterrors.NewIOError("write", "name_len", err)
	}
	if _, err := buf.WriteString(s); err != nil {
		return gbdterrors.NewIOError("write", "name", err)
	}
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readU64(r io.Reader, section string) (uint64, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, gbdterrors.NewIOFormatError("dataset", section, 8, 0)
	}
	return n, nil
}

func readExact(r io.Reader, n uint64, section string) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, gbdterrors.NewIOFormatError("dataset", section, int64(n), int64(got))
	}
	return buf, nil
}

// encodeMetadata serializes labels, weights, query boundaries, and init
// scores as length-prefixed float64/int32 arrays.
func encodeMetadata(ds *Dataset) ([]byte, error) {
	var buf bytes.Buffer
	for _, arr := range [][]float64{ds.Labels, ds.Weights, ds.InitScores} {
		if err := binary.Write(&buf, binary.LittleEndian, int64(len(arr))); err != nil {
			return nil, gbdterrors.NewIOError("write", "metadata", err)
		}
		if err := binary.Write(&buf, binary.LittleEndian, arr); err != nil {
			return nil, gbdterrors.NewIOError("write", "metadata", err)
		}
	}
	if err := binary.Write(&buf, binary.LittleEndian, int64(len(ds.QueryBoundaries))); err != nil {
		return nil, gbdterrors.NewIOError("write", "metadata", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, ds.QueryBoundaries); err != nil {
		return nil, gbdterrors.NewIOError("write", "metadata", err)
	}
	return buf.Bytes(), nil
}

func decodeMetadata(blob []byte, ds *Dataset) error {
	r := bytes.NewReader(blob)
	arrays := make([][]float64, 3)
	for i := range arrays {
		n, err := readI64(r)
		if err != nil {
			return gbdterrors.NewIOFormatError("dataset", "metadata", 0, 0)
		}
		arr := make([]float64, n)
		if n > 0 {
			if err := binary.Read(r, binary.LittleEndian, arr); err != nil {
				return gbdterrors.NewIOFormatError("dataset", "metadata", n*8, 0)
			}
		}
		arrays[i] = arr
	}
	ds.Labels, ds.Weights, ds.InitScores = arrays[0], arrays[1], arrays[2]

	n, err := readI64(r)
	if err != nil {
		return gbdterrors.NewIOFormatError("dataset", "metadata", 0, 0)
	}
	qb := make([]int32, n)
	if n > 0 {
		if err := binary.Read(r, binary.LittleEndian, qb); err != nil {
			return gbdterrors.NewIOFormatError("dataset", "metadata", n*4, 0)
		}
	}
	ds.QueryBoundaries = qb
	return nil
}

func readI64(r io.Reader) (int64, error) {
	var n int64
	err := binary.Read(r, binary.LittleEndian, &n)
	return n, err
}

// encodeFeature serializes a bin mapper (fixed size_for(maxBin) bytes)
// followed by its column's dense/sparse bin data.
func encodeFeature(m *bin.Mapper, col *bin.Column, maxBin int) ([]byte, error) {
	var buf bytes.Buffer
	mapperBuf := make([]byte, bin.SizeFor(maxBin))
	m.CopyTo(mapperBuf, maxBin)
	buf.Write(mapperBuf)

	if err := binary.Write(&buf, binary.LittleEndian, col.IsSparse()); err != nil {
		return nil, gbdterrors.NewIOError("write", "feature", err)
	}
	rows, bins := col.NonzeroEntries()
	if err := binary.Write(&buf, binary.LittleEndian, int64(len(rows))); err != nil {
		return nil, gbdterrors.NewIOError("write", "feature", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, rows); err != nil {
		return nil, gbdterrors.NewIOError("write", "feature", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, bins); err != nil {
		return nil, gbdterrors.NewIOError("write", "feature", err)
	}
	return buf.Bytes(), nil
}

func decodeFeature(blob []byte, featureIndex, numData, maxBin int) (*bin.Mapper, *bin.Column, error) {
	m := bin.NewMapper()
	want := int64(bin.SizeFor(maxBin))
	if int64(len(blob)) < want {
		return nil, nil, gbdterrors.NewIOFormatError("dataset", "feature", want, int64(len(blob)))
	}
	if err := m.CopyFrom(blob[:want], maxBin); err != nil {
		return nil, nil, err
	}
	r := bytes.NewReader(blob[want:])

	var isSparse bool
	if err := binary.Read(r, binary.LittleEndian, &isSparse); err != nil {
		return nil, nil, gbdterrors.NewIOFormatError("dataset", "feature", 0, 0)
	}
	n, err := readI64(r)
	if err != nil {
		return nil, nil, gbdterrors.NewIOFormatError("dataset", "feature", 0, 0)
	}
	rows := make([]int32, n)
	if n > 0 {
		if err := binary.Read(r, binary.LittleEndian, rows); err != nil {
			return nil, nil, gbdterrors.NewIOFormatError("dataset", "feature", n*4, 0)
		}
	}
	bins := make([]uint32, n)
	if n > 0 {
		if err := binary.Read(r, binary.LittleEndian, bins); err != nil {
			return nil, nil, gbdterrors.NewIOFormatError("dataset", "feature", n*4, 0)
		}
	}

	col := bin.NewColumn(featureIndex, m, numData, 1)
	for i := range rows {
		col.Push(0, int(rows[i]), representativeValue(m, bins[i]))
	}
	col.FinishLoad()
	_ = isSparse // storage layout is re-decided by FinishLoad's density heuristic, not dictated by the saved flag
	return m, col, nil
}

// representativeValue returns a value that maps back to bin b under
// m.ValueToBin. BinMapper.BinToValue is only meaningful for bins
// 0..NumBins()-2 (it returns the bin's upper boundary); the last bin has
// no upper boundary, so its representative value must be pushed just
// past the final boundary instead.
func representativeValue(m *bin.Mapper, b uint32) float64 {
	if int(b) < m.NumBins()-1 {
		v := m.BinToValue(b)
		if v == bin.DefaultValue && b != 0 {
			// DefaultValue always maps to bin 0; step just below it.
			return math.Nextafter(v, math.Inf(-1))
		}
		return v
	}
	last := m.BinToValue(uint32(m.NumBins() - 2))
	return math.Nextafter(last, math.Inf(1))
}
