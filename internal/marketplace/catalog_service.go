package marketplace

import (
	"context"
	"fmt"
	"io"
	"strings"

	"campus-market/internal/domain"
	"campus-market/internal/validation"
)

const (
	similarItemsLimit = 4
	maxListingImages  = 5
	maxFeedbackImages = 3
)

// Upload opens one uploaded file. multipart.FileHeader.Open fits.
type Upload func() (io.ReadCloser, error)

type CatalogService struct {
	listings  domain.ListingRepository
	feedback  domain.FeedbackRepository
	images    *ImageStore
	validator *validation.Validator
}

func NewCatalogService(listings domain.ListingRepository, feedback domain.FeedbackRepository, images *ImageStore) *CatalogService {
	return &CatalogService{
		listings:  listings,
		feedback:  feedback,
		images:    images,
		validator: validation.Global(),
	}
}

// Search returns one page of the feed. Pages past the end come back empty
// with the real totals so the caller can clamp.
func (s *CatalogService) Search(ctx context.Context, f domain.Filters) (*domain.Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Sort == "" {
		f.Sort = domain.SortNewest
	}
	return s.listings.Search(ctx, f)
}

func (s *CatalogService) Item(ctx context.Context, id string) (*domain.ItemDetail, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	similar, err := s.listings.Similar(ctx, l, similarItemsLimit)
	if err != nil {
		return nil, err
	}
	return &domain.ItemDetail{Details: *l, SimilarItems: similar}, nil
}

func (s *CatalogService) Create(ctx context.Context, session *domain.ServerSession, form *domain.ListingForm, uploads []Upload) (*domain.Listing, error) {
	if err := s.checkForm(form, len(uploads), maxListingImages); err != nil {
		return nil, err
	}
	images, err := s.saveImages(uploads)
	if err != nil {
		return nil, err
	}

	l := &domain.Listing{
		Title:       strings.TrimSpace(form.Title),
		Description: form.Description,
		Price:       form.Price,
		Images:      images,
		Hostel:      form.Hostel,
		Category:    form.Category,
		Campus:      session.Campus,
		Contact:     form.Contact,
		SellerName:  session.Name,
		SellerEmail: session.Email,
	}
	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Update edits a listing the caller owns. Existing images are kept unless
// new ones are uploaded.
func (s *CatalogService) Update(ctx context.Context, session *domain.ServerSession, id string, form *domain.ListingForm, uploads []Upload) (*domain.Listing, error) {
	existing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(existing.SellerEmail, session.Email) {
		return nil, domain.ErrForbidden
	}
	if err := s.checkForm(form, len(uploads), maxListingImages); err != nil {
		return nil, err
	}
	images, err := s.saveImages(uploads)
	if err != nil {
		return nil, err
	}

	l := &domain.Listing{
		ID:          id,
		Title:       strings.TrimSpace(form.Title),
		Description: form.Description,
		Price:       form.Price,
		Images:      images,
		Hostel:      form.Hostel,
		Category:    form.Category,
		Contact:     form.Contact,
	}
	if err := s.listings.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *CatalogService) MyListings(ctx context.Context, session *domain.ServerSession) ([]domain.Listing, error) {
	return s.listings.ListBySeller(ctx, session.Email)
}

// Batch applies method to all of ids or to none of them.
func (s *CatalogService) Batch(ctx context.Context, session *domain.ServerSession, method domain.Method, ids []string) error {
	if !method.IsBatch() {
		return domain.ErrInvalidMethod
	}
	if len(ids) == 0 {
		return domain.ErrInvalidInput
	}
	return s.listings.ApplyBatch(ctx, session.Email, method, ids)
}

func (s *CatalogService) SendFeedback(ctx context.Context, session *domain.ServerSession, form *domain.FeedbackForm, uploads []Upload) error {
	if err := s.validator.Struct(form); err != nil {
		return err
	}
	if len(uploads) > maxFeedbackImages {
		return fmt.Errorf("%w: at most %d images", domain.ErrInvalidInput, maxFeedbackImages)
	}
	images, err := s.saveImages(uploads)
	if err != nil {
		return err
	}
	return s.feedback.Create(ctx, &domain.Feedback{
		Email:       session.Email,
		Description: form.Description,
		Images:      images,
	})
}

func (s *CatalogService) checkForm(form *domain.ListingForm, uploads, max int) error {
	if err := s.validator.Struct(form); err != nil {
		return err
	}
	if uploads > max {
		return fmt.Errorf("%w: at most %d images", domain.ErrInvalidInput, max)
	}
	return nil
}

func (s *CatalogService) saveImages(uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	return s.images.SaveAll(uploads)
}
