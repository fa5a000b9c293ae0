package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/gorgonia/rbm"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
	"gorgonia.org/vecf32"
)

var regular *truetype.Font

const (
	dpi             = 144.0
	fontsize        = 12.0
	lineheight      = 1.2
	dummyLongString = `Iteration 100000, Error: 0.000000`
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

// grayPalette has 256 levels of gray. Index 0 is black and index 255 is white.
var grayPalette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{uint8(i)}
	}
	return p
}()

// Encoder renders the weights of a RBM as a grayscale heat map, one frame per Progress, with the iteration and
// the reconstruction error as a caption. It implements rbm.OutputEncoder.
//
// Each row of the image is a visible unit, each column a hidden unit. The largest weight of a frame is white and the smallest is black.
type Encoder struct {
	H, W int // size of a frame. Computed from the first Progress
	Cell int // size of the square of pixels a weight is drawn as
	font.Drawer

	out *gif.GIF
	io.Writer
	face font.Face

	padH, padW  int // padding so everything don't start at the topleft
	rows, cols  int
	initialized bool
}

// NewEncoder creates an Encoder that writes the animated GIF to w when flushed.
func NewEncoder(w io.Writer, cell int) *Encoder {
	if cell < 1 {
		cell = 1
	}
	return &Encoder{
		H:    -1,
		W:    -1,
		Cell: cell,
		padH: 10,
		padW: 10,

		Writer: w,
		Drawer: font.Drawer{
			Src: image.Black,
		},
		out: &gif.GIF{LoopCount: 0},
	}
}

func (enc *Encoder) dy() int { return int(math.Ceil(fontsize * lineheight * dpi / 72)) }

// Encode a frame
func (enc *Encoder) Encode(p rbm.Progress) error {
	if p.Weights == nil || p.Weights.Dims() != 2 {
		return errors.Errorf("expected a weight matrix")
	}
	rows, cols := p.Weights.Shape()[0], p.Weights.Shape()[1]
	weights, ok := p.Weights.Data().([]float32)
	if !ok {
		return errors.Errorf("expected float32 weights, got %v", p.Weights.Dtype())
	}
	caption := fmt.Sprintf("Iteration %d, Error: %.6f", p.Iteration, p.Error)

	if !enc.initialized {
		// lazy init of specifications
		enc.face = truetype.NewFace(regular, &truetype.Options{
			Size:    fontsize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		})
		enc.Drawer.Src = image.Black
		enc.Drawer.Face = enc.face

		textW := maxInt(font.MeasureString(enc.face, dummyLongString).Ceil(), font.MeasureString(enc.face, p.Name).Ceil())
		enc.rows, enc.cols = rows, cols
		enc.W = maxInt(cols*enc.Cell, textW) + 2*enc.padW
		enc.H = rows*enc.Cell + 3*enc.dy() + 2*enc.padH // 3 lines: spacing, name, caption
		enc.initialized = true
	}
	if rows != enc.rows || cols != enc.cols {
		return errors.Errorf("expected weights of (%d, %d), got (%d, %d)", enc.rows, enc.cols, rows, cols)
	}

	im := image.NewPaletted(image.Rect(0, 0, enc.W, enc.H), grayPalette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)

	lo, hi := vecf32.MinOf(weights), vecf32.MaxOf(weights)
	span := hi - lo
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var level uint8
			if span > 0 {
				level = uint8((weights[i*cols+j] - lo) / span * 255)
			}
			x0 := enc.padW + j*enc.Cell
			y0 := enc.padH + i*enc.Cell
			for y := y0; y < y0+enc.Cell; y++ {
				for x := x0; x < x0+enc.Cell; x++ {
					im.SetColorIndex(x, y, level)
				}
			}
		}
	}

	dy := enc.dy()
	y := enc.padH + rows*enc.Cell + dy
	enc.Dst = im
	enc.Dot = fixed.P(enc.padW, y)
	enc.DrawString(p.Name)
	y += dy
	enc.Dot = fixed.P(enc.padW, y)
	enc.DrawString(caption)

	enc.out.Image = append(enc.out.Image, im)
	enc.out.Delay = append(enc.out.Delay, 50)
	return nil
}

// Frames returns the number of frames encoded so far.
func (enc *Encoder) Frames() int { return len(enc.out.Image) }

// Flush writes the gif into the writer
func (enc *Encoder) Flush() error {
	if len(enc.out.Image) == 0 {
		return errors.New("no frames to write")
	}
	return gif.EncodeAll(enc.Writer, enc.out)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
