package application

import (
	"context"
	"fmt"
	"html"
	"strconv"

	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/graphic"
	"target-onchain-shopify-app/internal/infrastructure/metrics"
	"target-onchain-shopify-app/internal/ports"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

// FrameGraphicSize is the width and height of the generated frame graphic
const FrameGraphicSize = 300

// FrameService implements frame management and scan tracking
type FrameService struct {
	frames    ports.FrameRepository
	shopify   ports.ShopifyClient
	sanitizer *bluemonday.Policy
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewFrameService creates a new frame service
func NewFrameService(frames ports.FrameRepository, shopify ports.ShopifyClient, m *metrics.Metrics, logger zerolog.Logger) *FrameService {
	return &FrameService{
		frames:    frames,
		shopify:   shopify,
		sanitizer: bluemonday.StrictPolicy(),
		metrics:   m,
		logger:    logger,
	}
}

// ParseFrameID accepts positive decimal ids only. Anything else is reported
// as not found so callers cannot tell a malformed id from a missing frame.
func ParseFrameID(idParam string) (int64, error) {
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

// List returns the session shop's frames, newest first
func (s *FrameService) List(ctx context.Context, session *domain.Session) ([]*domain.FrameView, error) {
	if session == nil {
		return nil, domain.ErrUnauthorized
	}
	frames, err := s.frames.ListByShop(ctx, session.Shop)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}

	views := make([]*domain.FrameView, 0, len(frames))
	for _, frame := range frames {
		views = append(views, s.supplement(frame))
	}
	return views, nil
}

// Get returns one frame of the session shop with product details.
// The "new" id yields the blank template.
func (s *FrameService) Get(ctx context.Context, session *domain.Session, idParam string) (*domain.FrameView, error) {
	if session == nil {
		return nil, domain.ErrUnauthorized
	}
	if idParam == domain.NewFrameID {
		blank := domain.BlankFrame()
		blank.Shop = session.Shop
		return &domain.FrameView{Frame: *blank}, nil
	}

	frame, err := s.ownedFrame(ctx, session, idParam)
	if err != nil {
		return nil, err
	}

	view := s.supplement(frame)
	s.addProductDetails(ctx, session, view)
	return view, nil
}

// Save validates the input and creates ("new") or updates the frame
func (s *FrameService) Save(ctx context.Context, session *domain.Session, idParam string, input domain.FrameInput) (*domain.Frame, error) {
	if session == nil {
		return nil, domain.ErrUnauthorized
	}
	input.Title = s.stripTags(input.Title)
	input.Button = s.stripTags(input.Button)

	if err := input.Validate(); err != nil {
		return nil, err
	}

	if idParam == domain.NewFrameID {
		frame := &domain.Frame{Shop: session.Shop}
		input.Apply(frame)
		if err := s.frames.Create(ctx, frame); err != nil {
			return nil, fmt.Errorf("failed to create frame: %w", err)
		}
		s.logger.Info().Str("shop", session.Shop).Int64("frameId", frame.ID).Msg("Frame created")
		return frame, nil
	}

	frame, err := s.ownedFrame(ctx, session, idParam)
	if err != nil {
		return nil, err
	}

	input.Apply(frame)
	if err := s.frames.Update(ctx, frame); err != nil {
		return nil, fmt.Errorf("failed to update frame: %w", err)
	}
	s.logger.Info().Str("shop", session.Shop).Int64("frameId", frame.ID).Msg("Frame updated")
	return frame, nil
}

// Delete removes a frame of the session shop
func (s *FrameService) Delete(ctx context.Context, session *domain.Session, idParam string) error {
	if session == nil {
		return domain.ErrUnauthorized
	}
	id, err := ParseFrameID(idParam)
	if err != nil {
		return err
	}
	if err := s.frames.Delete(ctx, session.Shop, id); err != nil {
		return err
	}
	s.logger.Info().Str("shop", session.Shop).Int64("frameId", id).Msg("Frame deleted")
	return nil
}

// Scan records one scan and returns the URL to redirect to. The destination
// is computed first so a frame with a broken variant reference is not counted.
func (s *FrameService) Scan(ctx context.Context, idParam string) (string, error) {
	id, err := ParseFrameID(idParam)
	if err != nil {
		return "", err
	}

	frame, err := s.frames.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get frame: %w", err)
	}
	if frame == nil {
		return "", domain.ErrNotFound
	}

	destination, err := domain.DestinationURL(frame)
	if err != nil {
		s.logger.Error().Err(err).Int64("frameId", id).Msg("Failed to compute frame destination")
		return "", err
	}

	if err := s.frames.IncrementScans(ctx, id); err != nil {
		return "", err
	}
	s.metrics.ObserveScan(string(frame.Destination))

	return destination, nil
}

// Image renders the public frame graphic as SVG
func (s *FrameService) Image(ctx context.Context, idParam string) ([]byte, error) {
	id, err := ParseFrameID(idParam)
	if err != nil {
		return nil, err
	}

	frame, err := s.frames.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get frame: %w", err)
	}
	if frame == nil {
		return nil, domain.ErrNotFound
	}

	return graphic.RenderSVG(frame.DisplayText(), frameGraphicOptions())
}

// RefreshProductHandle rewrites the stored handle after a product update
func (s *FrameService) RefreshProductHandle(ctx context.Context, shop string, productID uint64, handle string) (int64, error) {
	if handle == "" {
		return 0, nil
	}
	n, err := s.frames.UpdateProductHandle(ctx, shop, domain.ProductGID(productID), handle)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh product handle: %w", err)
	}
	return n, nil
}

// PurgeShop erases every frame of a shop
func (s *FrameService) PurgeShop(ctx context.Context, shop string) (int64, error) {
	n, err := s.frames.DeleteByShop(ctx, shop)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("shop", shop).Int64("frames", n).Msg("Shop frames purged")
	return n, nil
}

// stripTags removes markup but keeps the text itself plain; the sanitizer
// entity-encodes what it leaves and the graphic escapes again on render.
func (s *FrameService) stripTags(text string) string {
	return html.UnescapeString(s.sanitizer.Sanitize(text))
}

func (s *FrameService) ownedFrame(ctx context.Context, session *domain.Session, idParam string) (*domain.Frame, error) {
	id, err := ParseFrameID(idParam)
	if err != nil {
		return nil, err
	}

	frame, err := s.frames.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get frame: %w", err)
	}
	if frame == nil || frame.Shop != session.Shop {
		return nil, domain.ErrNotFound
	}
	return frame, nil
}

func (s *FrameService) supplement(frame *domain.Frame) *domain.FrameView {
	view := &domain.FrameView{Frame: *frame}

	if url, err := domain.DestinationURL(frame); err != nil {
		view.DestinationError = err.Error()
	} else {
		view.DestinationURL = url
	}

	if dataURL, err := graphic.TextToDataURL(frame.DisplayText(), frameGraphicOptions()); err == nil {
		view.ImageDataURL = dataURL
	}

	return view
}

// addProductDetails is best effort; a deleted product leaves the fields empty
func (s *FrameService) addProductDetails(ctx context.Context, session *domain.Session, view *domain.FrameView) {
	if s.shopify == nil || !session.HasAccessToken() {
		return
	}
	productID, ok := domain.ParseProductGID(view.ProductID)
	if !ok {
		return
	}

	product, err := s.shopify.GetProduct(ctx, session.Shop, session.AccessToken, productID)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", session.Shop).Str("productId", view.ProductID).Msg("Failed to load product details")
		return
	}

	view.ProductTitle = product.Title
	if len(product.Images) > 0 {
		view.ProductImage = product.Images[0].Src
	}
}

func frameGraphicOptions() graphic.Options {
	return graphic.Options{Width: FrameGraphicSize, Height: FrameGraphicSize}
}
