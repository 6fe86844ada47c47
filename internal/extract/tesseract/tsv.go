package tesseract

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"avplan/internal/port"
)

// TSV columns emitted by `tesseract ... tsv`.
const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	numCols
)

const (
	levelPage = 1
	levelWord = 5
)

type tsvBlock struct {
	lines   []string
	lineKey string
	confSum float64
	words   int
	left    int
	top     int
	right   int
	bottom  int
}

// parseTSV groups tesseract word rows into blocks. Each block keeps its line
// breaks, a mean word confidence in [0,1] and a box normalized to the page size.
func parseTSV(data []byte) ([]port.OCRBlock, error) {
	var (
		pageW, pageH int
		order        []int
		byID         = map[int]*tsvBlock{}
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		cols := strings.Split(sc.Text(), "\t")
		if len(cols) < numCols-1 {
			continue
		}
		nums := make([]int, colConf)
		for i := 0; i < colConf; i++ {
			n, err := strconv.Atoi(cols[i])
			if err != nil {
				return nil, fmt.Errorf("tesseract tsv: column %d: %w", i, err)
			}
			nums[i] = n
		}
		switch nums[colLevel] {
		case levelPage:
			pageW, pageH = nums[colWidth], nums[colHeight]
			continue
		case levelWord:
		default:
			continue
		}
		conf, err := strconv.ParseFloat(cols[colConf], 64)
		if err != nil {
			return nil, fmt.Errorf("tesseract tsv: confidence: %w", err)
		}
		text := ""
		if len(cols) > colText {
			text = strings.TrimSpace(cols[colText])
		}
		if conf < 0 || text == "" {
			continue
		}

		id := nums[colBlock]
		blk, ok := byID[id]
		if !ok {
			blk = &tsvBlock{left: nums[colLeft], top: nums[colTop], right: nums[colLeft] + nums[colWidth], bottom: nums[colTop] + nums[colHeight]}
			byID[id] = blk
			order = append(order, id)
		}
		key := fmt.Sprintf("%d.%d", nums[colPar], nums[colLine])
		if key != blk.lineKey || len(blk.lines) == 0 {
			blk.lines = append(blk.lines, text)
			blk.lineKey = key
		} else {
			blk.lines[len(blk.lines)-1] += " " + text
		}
		blk.confSum += conf
		blk.words++
		blk.left = min(blk.left, nums[colLeft])
		blk.top = min(blk.top, nums[colTop])
		blk.right = max(blk.right, nums[colLeft]+nums[colWidth])
		blk.bottom = max(blk.bottom, nums[colTop]+nums[colHeight])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tesseract tsv: %w", err)
	}

	blocks := make([]port.OCRBlock, 0, len(order))
	for _, id := range order {
		blk := byID[id]
		b := port.OCRBlock{
			Text:       strings.Join(blk.lines, "\n"),
			Confidence: blk.confSum / float64(blk.words) / 100,
		}
		if pageW > 0 && pageH > 0 {
			b.Box = &port.BoundingBox{
				X0: float64(blk.left) / float64(pageW),
				Y0: float64(blk.top) / float64(pageH),
				X1: float64(blk.right) / float64(pageW),
				Y1: float64(blk.bottom) / float64(pageH),
			}
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
