package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// CategoryService handles category-related business operations.
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	uow          shared.UnitOfWork
	publisher    shared.EventPublisher
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	uow shared.UnitOfWork,
	publisher shared.EventPublisher,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		uow:          uow,
		publisher:    publisher,
	}
}

// Create creates a new category, as a root or under a parent.
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	exists, err := s.categoryRepo.ExistsBySlug(ctx, req.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Category with this slug already exists")
	}

	var category *catalog.Category

	if req.ParentID != nil {
		parent, err := s.categoryRepo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_PARENT", "Parent category not found")
			}
			return nil, err
		}

		category, err = catalog.NewChildCategory(req.Slug, req.Name, parent)
		if err != nil {
			return nil, err
		}
	} else {
		category, err = catalog.NewCategory(req.Slug, req.Name)
		if err != nil {
			return nil, err
		}
	}

	if req.Description != "" {
		if err := category.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}
	if req.SortOrder != nil {
		category.SetSortOrder(*req.SortOrder)
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, category)

	return ToCategoryResponse(category), nil
}

// GetByID retrieves a category by ID.
func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponse(category), nil
}

// GetBySlug retrieves a category by slug.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponse(category), nil
}

// List retrieves categories matching the filter, paginated.
func (s *CategoryService) List(ctx context.Context, filter CategoryListFilter) (*shared.Paginated[CategoryResponse], error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.Search = filter.Search
	domainFilter.OrderBy = filter.OrderBy
	domainFilter.OrderDir = filter.OrderDir
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.ParentID != nil {
		domainFilter.Filters["parent_id"] = *filter.ParentID
	}

	categories, err := s.categoryRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.categoryRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToCategoryResponses(categories), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// GetTree retrieves the full category hierarchy as nested nodes.
func (s *CategoryService) GetTree(ctx context.Context) ([]CategoryTreeNode, error) {
	filter := shared.Filter{OrderBy: "sort_order", OrderDir: "asc"}
	categories, err := s.categoryRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return buildCategoryTree(categories), nil
}

// GetChildren retrieves direct children of a category.
func (s *CategoryService) GetChildren(ctx context.Context, parentID uuid.UUID) ([]CategoryResponse, error) {
	children, err := s.categoryRepo.FindChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponses(children), nil
}

// GetRoots retrieves all root categories.
func (s *CategoryService) GetRoots(ctx context.Context) ([]CategoryResponse, error) {
	roots, err := s.categoryRepo.FindRoots(ctx)
	if err != nil {
		return nil, err
	}
	return ToCategoryResponses(roots), nil
}

// Update updates a category's name, description, or sort order.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := category.Name
	if req.Name != nil {
		name = *req.Name
	}
	description := category.Description
	if req.Description != nil {
		description = *req.Description
	}
	if req.Name != nil || req.Description != nil {
		if err := category.Update(name, description); err != nil {
			return nil, err
		}
	}
	if req.SortOrder != nil {
		category.SetSortOrder(*req.SortOrder)
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, category)

	return ToCategoryResponse(category), nil
}

// Move re-parents a category. Moving under one of the category's own
// descendants is rejected, and descendant paths are rewritten in the same
// transaction as the category itself.
func (s *CategoryService) Move(ctx context.Context, id uuid.UUID, req MoveCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var parent *catalog.Category
	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, shared.NewDomainError("CIRCULAR_REFERENCE", "Category cannot be its own parent")
		}
		parent, err = s.categoryRepo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_PARENT", "Parent category not found")
			}
			return nil, err
		}
		if category.IsAncestorOf(parent) {
			return nil, shared.NewDomainError("CIRCULAR_REFERENCE", "Cannot move category under its own descendant")
		}

		// The depth check in Reparent only sees the moved node; the whole
		// subtree has to fit under the new parent as well.
		height, err := s.subtreeHeight(ctx, category)
		if err != nil {
			return nil, err
		}
		if parent.Level+1+height >= catalog.MaxCategoryDepth {
			return nil, shared.NewDomainError("MAX_DEPTH_EXCEEDED", fmt.Sprintf("Category depth cannot exceed %d levels", catalog.MaxCategoryDepth))
		}
	}

	oldPath := category.Path
	oldLevel := category.Level

	if err := category.Reparent(parent); err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		if err := s.categoryRepo.Save(ctx, category); err != nil {
			return err
		}
		return s.categoryRepo.RewriteSubtreePaths(ctx, oldPath, category.Path, category.Level-oldLevel)
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, category)

	return ToCategoryResponse(category), nil
}

// Activate activates a category.
func (s *CategoryService) Activate(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	return s.changeStatus(ctx, id, (*catalog.Category).Activate)
}

// Deactivate deactivates a category. The soft alternative to deletion.
func (s *CategoryService) Deactivate(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	return s.changeStatus(ctx, id, (*catalog.Category).Deactivate)
}

func (s *CategoryService) changeStatus(ctx context.Context, id uuid.UUID, change func(*catalog.Category) error) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(category); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, category)
	return ToCategoryResponse(category), nil
}

// Delete removes a category. Deletion is rejected while the category has
// child categories or products referencing it.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	hasChildren, err := s.categoryRepo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return shared.NewDomainError("CATEGORY_HAS_CHILDREN", "Cannot delete a category with child categories")
	}

	hasProducts, err := s.categoryRepo.HasProducts(ctx, id)
	if err != nil {
		return err
	}
	if hasProducts {
		return shared.NewDomainError("CATEGORY_HAS_PRODUCTS", "Cannot delete a category with products")
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, catalog.NewCategoryDeletedEvent(category))
	}

	return nil
}

// AveragePrice computes the average price of active products in the
// category and all its descendants. A subtree without products reports a
// zero average and zero count.
func (s *CategoryService) AveragePrice(ctx context.Context, id uuid.UUID) (*CategoryPriceResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.categoryRepo.AveragePrice(ctx, category.Path)
	if err != nil {
		return nil, err
	}

	return &CategoryPriceResponse{
		CategoryID:   category.ID,
		AveragePrice: stats.AveragePrice,
		ProductCount: stats.ProductCount,
	}, nil
}

// subtreeHeight returns the distance from the category to its deepest
// descendant (zero for a leaf).
func (s *CategoryService) subtreeHeight(ctx context.Context, category *catalog.Category) (int, error) {
	descendants, err := s.categoryRepo.FindDescendants(ctx, category.ID)
	if err != nil {
		return 0, err
	}
	height := 0
	for i := range descendants {
		if d := descendants[i].Level - category.Level; d > height {
			height = d
		}
	}
	return height, nil
}

func (s *CategoryService) publishEvents(ctx context.Context, category *catalog.Category) {
	if s.publisher == nil {
		return
	}
	events := category.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.publisher.Publish(ctx, events...)
	category.ClearDomainEvents()
}

// buildCategoryTree assembles nested nodes from a flat category list.
// Children are sorted by sort order, then name.
func buildCategoryTree(categories []catalog.Category) []CategoryTreeNode {
	nodes := make(map[uuid.UUID]*CategoryTreeNode, len(categories))
	order := make([]uuid.UUID, 0, len(categories))
	for i := range categories {
		nodes[categories[i].ID] = &CategoryTreeNode{
			CategoryResponse: *ToCategoryResponse(&categories[i]),
			Children:         []CategoryTreeNode{},
		}
		order = append(order, categories[i].ID)
	}

	var roots []CategoryTreeNode

	// Attach deepest-first so children are complete before their parent
	// copies them in.
	byDepth := make([]uuid.UUID, len(order))
	copy(byDepth, order)
	sort.SliceStable(byDepth, func(i, j int) bool {
		return nodes[byDepth[i]].Level > nodes[byDepth[j]].Level
	})

	for _, id := range byDepth {
		node := nodes[id]
		if node.ParentID == nil {
			continue
		}
		if parent, ok := nodes[*node.ParentID]; ok {
			parent.Children = append(parent.Children, *node)
		}
	}

	for _, id := range order {
		node := nodes[id]
		if node.ParentID != nil {
			if _, ok := nodes[*node.ParentID]; ok {
				continue
			}
		}
		roots = append(roots, *node)
	}

	sortTreeNodes(roots)
	return roots
}

func sortTreeNodes(nodes []CategoryTreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for i := range nodes {
		sortTreeNodes(nodes[i].Children)
	}
}
