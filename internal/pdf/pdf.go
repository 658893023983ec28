package pdf

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/samber/lo"
	_ "golang.org/x/image/webp"
)

func init() {
	// pdfcpu would otherwise create a config dir in the user's home
	api.DisableConfigDir()
}

// DecodeError is returned when an input image cannot be read.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError is returned when the PDF cannot be written.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write pdf: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Options controls Assemble.
type Options struct {
	// Title and Author are written to the document info dictionary when set.
	Title  string
	Author string
	// TempDir receives intermediate files. Defaults to the directory of the output file.
	TempDir string
}

// Result describes a written PDF.
type Result struct {
	Path  string
	Pages int
	// Passthrough counts the JPEGs embedded without re-encoding.
	Passthrough int
}

// Assemble writes one page per image into a new PDF at out, in the given order.
// Every page has the pixel size of its image.
func Assemble(ctx context.Context, images []string, out string, opts Options) (*Result, error) {
	if len(images) == 0 {
		return nil, &WriteError{Err: fmt.Errorf("no images")}
	}

	tmp := opts.TempDir
	if tmp == "" {
		tmp = filepath.Dir(out)
	}
	stage, err := os.MkdirTemp(tmp, "pages-*")
	if err != nil {
		return nil, &WriteError{Err: err}
	}
	defer os.RemoveAll(stage) //nolint:errcheck

	res := &Result{Path: out, Pages: len(images)}
	pages := make([]string, 0, len(images))
	for i, path := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, passthrough, err := preparePage(path, filepath.Join(stage, fmt.Sprintf("%05d.png", i)))
		if err != nil {
			return nil, err
		}
		if passthrough {
			res.Passthrough++
		}
		pages = append(pages, page)
	}

	readers := lo.Map(pages, func(p string, _ int) io.Reader { return &lazyFile{path: p} })
	defer func() {
		for _, r := range readers {
			_ = r.(*lazyFile).Close()
		}
	}()

	if err := writePDF(out, readers); err != nil {
		return nil, err
	}

	props := make(map[string]string)
	if opts.Title != "" {
		props["Title"] = opts.Title
	}
	if opts.Author != "" {
		props["Author"] = opts.Author
	}
	if len(props) > 0 {
		if err := api.AddPropertiesFile(out, "", props, model.NewDefaultConfiguration()); err != nil {
			return nil, &WriteError{Err: fmt.Errorf("failed to set document properties: %w", err)}
		}
	}

	log.Debug("assembled pdf", "file", filepath.Base(out), "pages", res.Pages, "passthrough", res.Passthrough)
	return res, nil
}

func writePDF(out string, readers []io.Reader) (err error) {
	f, err := os.Create(out) //nolint:gosec
	if err != nil {
		return &WriteError{Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &WriteError{Err: cerr}
		}
		if err != nil {
			_ = os.Remove(out)
		}
	}()

	w := bufio.NewWriter(f)
	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full
	if err := api.ImportImages(nil, w, readers, imp, model.NewDefaultConfiguration()); err != nil {
		return &WriteError{Err: err}
	}
	if err := w.Flush(); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// preparePage returns the file to embed for the image at path.
// Color JPEGs are used as they are, everything else is flattened to RGB and
// written as PNG to tmp.
func preparePage(path, tmp string) (string, bool, error) {
	format, cm, err := sniff(path)
	if err != nil {
		return "", false, &DecodeError{Path: path, Err: err}
	}
	if format == "jpeg" && cm == color.YCbCrModel {
		return path, true, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return "", false, &DecodeError{Path: path, Err: err}
	}

	if err := writePNG(tmp, toRGB(img)); err != nil {
		return "", false, &WriteError{Err: err}
	}
	return tmp, false, nil
}

func sniff(path string) (string, color.Model, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return "", nil, err
	}
	defer f.Close() //nolint:errcheck

	cfg, format, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return "", nil, err
	}
	return format, cfg.ColorModel, nil
}

// toRGB draws img onto an opaque white canvas.
func toRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// lazyFile opens path on first read and closes it at EOF,
// so only one page is open at a time.
type lazyFile struct {
	path string
	f    *os.File
	done bool
}

func (l *lazyFile) Read(p []byte) (int, error) {
	if l.done {
		return 0, io.EOF
	}
	if l.f == nil {
		f, err := os.Open(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	n, err := l.f.Read(p)
	if err == io.EOF {
		l.done = true
		_ = l.Close()
	}
	return n, err
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
