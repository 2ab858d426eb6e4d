package invoicepdf

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// Attributes used to find staged clones and restore hidden siblings.
const (
	stageAttr  = "data-invoicepdf-stage"
	hiddenAttr = "data-invoicepdf-hidden"
)

// rodSurface drives a live Chrome page through go-rod.
// Staged clones are addressed by a unique attribute value; the original id is
// left on the clone, so id lookups keep resolving to the original element.
type rodSurface struct {
	page *rod.Page
}

func newRodSurface(page *rod.Page) *rodSurface {
	return &rodSurface{page: page}
}

var _ Surface = (*rodSurface)(nil)

func (s *rodSurface) eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	return s.page.Context(ctx).Eval(js, args...)
}

func (s *rodSurface) Lookup(ctx context.Context, targetID string) (Node, error) {
	res, err := s.eval(ctx, `(id) => document.getElementById(id) !== null`, targetID)
	if err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrStage, err)
	}
	if !res.Value.Bool() {
		return Node{}, fmt.Errorf("%w: #%s", ErrTargetNotFound, targetID)
	}
	return Node{Ref: targetID}, nil
}

func (s *rodSurface) Stage(ctx context.Context, target Node) (Node, error) {
	key := uuid.NewString()
	res, err := s.eval(ctx, `(id, attr, key) => {
		const target = document.getElementById(id);
		if (!target) return false;
		const clone = target.cloneNode(true);
		clone.setAttribute(attr, key);
		clone.style.position = 'absolute';
		clone.style.left = '-9999px';
		clone.style.top = '0';
		clone.style.width = target.scrollWidth + 'px';
		clone.style.overflow = 'visible';
		document.body.appendChild(clone);
		return true;
	}`, target.Ref, stageAttr, key)
	if err != nil {
		return Node{}, err
	}
	if !res.Value.Bool() {
		return Node{}, fmt.Errorf("%w: #%s", ErrTargetNotFound, target.Ref)
	}
	return Node{Ref: key}, nil
}

func (s *rodSurface) Unstage(ctx context.Context, clone Node) error {
	_, err := s.eval(ctx, `(attr, hidden, key) => {
		const clone = document.querySelector('[' + attr + '="' + key + '"]');
		if (clone) clone.remove();
		for (const el of document.querySelectorAll('[' + hidden + '="' + key + '"]')) {
			el.style.visibility = el.dataset.invoicepdfVisibility || '';
			el.removeAttribute(hidden);
			delete el.dataset.invoicepdfVisibility;
		}
		const root = document.documentElement;
		if (root.dataset.invoicepdfBackground !== undefined) {
			root.style.background = root.dataset.invoicepdfBackground;
			delete root.dataset.invoicepdfBackground;
		}
	}`, stageAttr, hiddenAttr, clone.Ref)
	return err
}

func (s *rodSurface) ComputedStyles(ctx context.Context, clone Node) (StyleSnapshot, error) {
	res, err := s.eval(ctx, `(attr, key) => {
		const clone = document.querySelector('[' + attr + '="' + key + '"]');
		if (!clone) throw new Error('staged clone missing');
		const read = (el, index) => {
			const cs = getComputedStyle(el);
			return {
				index: index,
				tag: el.tagName.toLowerCase(),
				color: cs.color,
				backgroundColor: cs.backgroundColor,
				borderColor: cs.borderColor,
				fill: cs.fill,
				stroke: cs.stroke,
				opacity: cs.opacity,
				backgroundImage: cs.backgroundImage,
				paddingBottom: cs.paddingBottom,
			};
		};
		const elements = Array.from(clone.querySelectorAll('*')).map(read);
		return JSON.stringify({root: read(clone, -1), elements: elements});
	}`, stageAttr, clone.Ref)
	if err != nil {
		return StyleSnapshot{}, err
	}

	var snap StyleSnapshot
	if err := json.Unmarshal([]byte(res.Value.Str()), &snap); err != nil {
		return StyleSnapshot{}, fmt.Errorf("decoding computed styles: %w", err)
	}
	return snap, nil
}

func (s *rodSurface) ApplyStyles(ctx context.Context, clone Node, patches []StylePatch) error {
	_, err := s.eval(ctx, `(attr, key, patches) => {
		const clone = document.querySelector('[' + attr + '="' + key + '"]');
		if (!clone) throw new Error('staged clone missing');
		const elements = clone.querySelectorAll('*');
		for (const p of patches) {
			const el = p.index === -1 ? clone : elements[p.index];
			if (!el) continue;
			for (const d of p.properties) el.style.setProperty(d.name, d.value);
		}
	}`, stageAttr, clone.Ref, patches)
	return err
}

func (s *rodSurface) Images(ctx context.Context, clone Node) ([]ImageState, error) {
	res, err := s.eval(ctx, `(attr, key) => {
		const clone = document.querySelector('[' + attr + '="' + key + '"]');
		if (!clone) throw new Error('staged clone missing');
		return JSON.stringify(Array.from(clone.querySelectorAll('img')).map((img, i) => ({
			index: i,
			src: img.currentSrc || img.src,
			complete: img.complete,
		})));
	}`, stageAttr, clone.Ref)
	if err != nil {
		return nil, err
	}

	var images []ImageState
	if err := json.Unmarshal([]byte(res.Value.Str()), &images); err != nil {
		return nil, fmt.Errorf("decoding image list: %w", err)
	}
	return images, nil
}

func (s *rodSurface) AwaitImage(ctx context.Context, clone Node, index int) error {
	_, err := s.eval(ctx, `(attr, key, index) => new Promise((resolve) => {
		const clone = document.querySelector('[' + attr + '="' + key + '"]');
		const img = clone ? clone.querySelectorAll('img')[index] : null;
		if (!img || img.complete) return resolve(true);
		img.addEventListener('load', () => resolve(true), {once: true});
		img.addEventListener('error', () => resolve(false), {once: true});
	})`, stageAttr, clone.Ref, index)
	return err
}

// captureBox is the clone's document-space bounding box.
type captureBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rasterize brings the clone on-screen, hides every other body child, paints
// the page background, and captures the clone's full box. Unstage restores
// the hidden siblings and the background.
// Chrome paints cross-origin images natively, so AllowCrossOrigin needs no
// extra handling here.
func (s *rodSurface) Rasterize(ctx context.Context, clone Node, opts CaptureOptions) (*CaptureResult, error) {
	res, err := s.eval(ctx, `(attr, hidden, key, background) => {
		const clone = document.querySelector('[' + attr + '="' + key + '"]');
		if (!clone) throw new Error('staged clone missing');
		for (const el of document.body.children) {
			if (el === clone || el.hasAttribute(hidden)) continue;
			el.dataset.invoicepdfVisibility = el.style.visibility;
			el.setAttribute(hidden, key);
			el.style.visibility = 'hidden';
		}
		const root = document.documentElement;
		if (root.dataset.invoicepdfBackground === undefined) {
			root.dataset.invoicepdfBackground = root.style.background;
		}
		root.style.background = background;
		clone.style.left = '0px';
		clone.style.top = '0px';
		const r = clone.getBoundingClientRect();
		return JSON.stringify({
			x: r.left + window.scrollX,
			y: r.top + window.scrollY,
			width: Math.max(r.width, clone.scrollWidth),
			height: Math.max(r.height, clone.scrollHeight),
		});
	}`, stageAttr, hiddenAttr, clone.Ref, opts.Background)
	if err != nil {
		return nil, err
	}

	var box captureBox
	if err := json.Unmarshal([]byte(res.Value.Str()), &box); err != nil {
		return nil, fmt.Errorf("decoding capture box: %w", err)
	}
	if box.Width <= 0 || box.Height <= 0 {
		return nil, fmt.Errorf("clone has empty box %.0fx%.0f", box.Width, box.Height)
	}

	png, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      box.X,
			Y:      box.Y,
			Width:  math.Ceil(box.Width),
			Height: math.Ceil(box.Height),
			Scale:  opts.Scale,
		},
		FromSurface:           true,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, err
	}

	return &CaptureResult{PNG: png}, nil
}
