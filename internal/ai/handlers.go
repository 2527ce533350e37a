package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"shopbot/internal/backend"
	"shopbot/internal/models"
)

const (
	// minProductNameLength is enforced locally before any network call.
	minProductNameLength = 3

	// bulkConfirmThreshold: any operation affecting more than this many
	// products requires an explicit confirmation step.
	bulkConfirmThreshold = 10

	// bulkBatchSize bounds concurrent backend calls during bulk
	// repricing; batches run sequentially.
	bulkBatchSize = 10
)

// ProgressFunc receives progress text during long bulk operations so the
// transport can edit its status message.
type ProgressFunc func(text string)

// roundPrice rounds to cents, matching the backend's price precision.
func roundPrice(price float64) float64 {
	return math.Round(price*100) / 100
}

func formatProductLine(i int, p models.Product) string {
	return fmt.Sprintf("%d. %s — $%.2f (stock: %d)", i+1, p.Name, p.Price, p.StockQuantity)
}

// resolveByName fuzzy-matches a product name against the catalog.
// Returns exactly one of: a product, clarification options, or a failure
// result.
func resolveByName(name string, products []models.Product) (*models.Product, []ClarifyOption, Result) {
	if name == "" {
		return nil, nil, failure("Please specify the product name.")
	}

	matches := FuzzySearch(name, products, defaultMatchThreshold)
	if len(matches) == 0 {
		return nil, nil, failure(fmt.Sprintf("Product %q not found", name))
	}
	if len(matches) == 1 {
		return &matches[0].Product, nil, Result{}
	}

	options := make([]ClarifyOption, 0, len(matches))
	for _, m := range matches {
		options = append(options, ClarifyOption{
			ID:    m.Product.ID,
			Name:  m.Product.Name,
			Price: m.Product.Price,
		})
	}
	return nil, options, Result{}
}

func (a *Assistant) handleAddProduct(ctx context.Context, args AddProductArgs) Result {
	if len([]rune(args.Name)) < minProductNameLength {
		return failure("The name must be at least 3 characters long")
	}
	if args.Price <= 0 {
		return failure("The price must be greater than 0")
	}
	if args.Stock < 0 {
		args.Stock = 0
	}

	name := TransliterateProductName(args.Name)
	if name != args.Name {
		a.logger.Info("Product name transliterated",
			zap.String("original", args.Name),
			zap.String("transliterated", name),
		)
	}

	product, err := a.backend.CreateProduct(ctx, backend.CreateProductRequest{
		Name:          name,
		Price:         args.Price,
		Currency:      "USD",
		ShopID:        a.shop.ShopID,
		StockQuantity: args.Stock,
	})
	if err != nil {
		a.logger.Error("Add product via AI failed", zap.Error(err))
		return failure("Could not add the product")
	}

	displayName := name
	if name != args.Name {
		displayName = fmt.Sprintf("%s (%s)", name, args.Name)
	}
	message := fmt.Sprintf("Added: %s — $%.2f", displayName, args.Price)
	if args.Stock > 0 {
		message += fmt.Sprintf(" (stock: %d)", args.Stock)
	}

	return Result{Success: true, Message: message, Data: product, Operation: OpAddProduct}
}

func (a *Assistant) handleBulkAddProducts(ctx context.Context, args BulkAddProductsArgs) Result {
	if len(args.Products) == 0 {
		return failure("Please specify the products to add.")
	}

	var added, skipped []string
	for _, item := range args.Products {
		if len([]rune(item.Name)) < minProductNameLength || item.Price <= 0 {
			skipped = append(skipped, item.Name)
			continue
		}
		result := a.handleAddProduct(ctx, item)
		if result.Success {
			added = append(added, TransliterateProductName(item.Name))
		} else {
			skipped = append(skipped, item.Name)
		}
	}

	if len(added) == 0 {
		return failure("Could not add any of the products")
	}

	message := fmt.Sprintf("Added %d products: %s", len(added), strings.Join(added, ", "))
	if len(skipped) > 0 {
		message += fmt.Sprintf("\nSkipped: %s", strings.Join(skipped, ", "))
	}
	return Result{Success: true, Message: message, Operation: OpBulkAddProducts}
}

func (a *Assistant) handleDeleteProduct(ctx context.Context, session *Session, args DeleteProductArgs, products []models.Product) Result {
	product, options, fail := resolveByName(args.ProductName, products)
	if product == nil && options == nil {
		return fail
	}

	if options != nil {
		session.SetClarification(PendingClarification{
			Operation: OpDeleteProduct,
			Options:   options,
			CreatedAt: a.now(),
		})
		return Result{
			Message:            fmt.Sprintf("Found several products matching %q:", args.ProductName),
			Operation:          OpDeleteProduct,
			NeedsClarification: true,
			Options:            options,
		}
	}

	if err := a.backend.DeleteProduct(ctx, product.ID); err != nil {
		a.logger.Error("Delete product via AI failed", zap.Error(err))
		return failure("Could not delete the product")
	}

	return Result{
		Success:   true,
		Message:   fmt.Sprintf("Deleted: %s ($%.2f)", product.Name, product.Price),
		Data:      product,
		Operation: OpDeleteProduct,
	}
}

func (a *Assistant) handleListProducts(products []models.Product) Result {
	if len(products) == 0 {
		return Result{Success: true, Message: "No products yet", Operation: OpListProducts}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Products (%d):\n\n", len(products))
	for i, p := range products {
		sb.WriteString(formatProductLine(i, p))
		sb.WriteByte('\n')
	}
	return Result{Success: true, Message: strings.TrimRight(sb.String(), "\n"), Data: products, Operation: OpListProducts}
}

func (a *Assistant) handleSearchProduct(args SearchProductArgs, products []models.Product) Result {
	if args.Query == "" {
		return failure("Please specify a search query.")
	}

	var matches []models.Product
	queryLower := strings.ToLower(args.Query)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), queryLower) {
			matches = append(matches, p)
		}
	}

	if len(matches) == 0 {
		return failure(fmt.Sprintf("No products matching %q found", args.Query))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d:\n\n", len(matches))
	for i, p := range matches {
		sb.WriteString(formatProductLine(i, p))
		sb.WriteByte('\n')
	}
	return Result{Success: true, Message: strings.TrimRight(sb.String(), "\n"), Data: matches, Operation: OpSearchProduct}
}

func (a *Assistant) handleUpdateProduct(ctx context.Context, session *Session, args UpdateProductArgs, products []models.Product) Result {
	updates := args.Updates
	if updates.Name == nil && updates.Price == nil && updates.StockQuantity == nil {
		return failure("Please specify what to update (price, name or stock).")
	}
	if updates.Price != nil && *updates.Price <= 0 {
		return failure("The price must be greater than 0")
	}
	if updates.StockQuantity != nil && *updates.StockQuantity < 0 {
		return failure("Stock cannot be negative")
	}

	product, options, fail := resolveByName(args.ProductName, products)
	if product == nil && options == nil {
		return fail
	}

	if options != nil {
		session.SetClarification(PendingClarification{
			Operation: OpUpdateProduct,
			Options:   options,
			Update:    &updates,
			CreatedAt: a.now(),
		})
		return Result{
			Message:            fmt.Sprintf("Found several products matching %q:", args.ProductName),
			Operation:          OpUpdateProduct,
			NeedsClarification: true,
			Options:            options,
		}
	}

	return a.applyProductUpdate(ctx, *product, updates)
}

func (a *Assistant) applyProductUpdate(ctx context.Context, product models.Product, updates ProductUpdates) Result {
	updated, err := a.backend.UpdateProduct(ctx, product.ID, backend.ProductUpdate{
		Name:          updates.Name,
		Price:         updates.Price,
		StockQuantity: updates.StockQuantity,
	})
	if err != nil {
		a.logger.Error("Update product via AI failed", zap.Error(err))
		return failure("Could not update the product")
	}

	var changes []string
	if updates.Name != nil {
		changes = append(changes, fmt.Sprintf("name: %q", *updates.Name))
	}
	if updates.Price != nil {
		changes = append(changes, fmt.Sprintf("price: $%.2f", *updates.Price))
	}
	if updates.StockQuantity != nil {
		changes = append(changes, fmt.Sprintf("stock: %d", *updates.StockQuantity))
	}

	return Result{
		Success:   true,
		Message:   fmt.Sprintf("Updated: %s\n%s", product.Name, strings.Join(changes, ", ")),
		Data:      updated,
		Operation: OpUpdateProduct,
	}
}

func (a *Assistant) handleBulkDeleteAll(ctx context.Context, session *Session, products []models.Product) Result {
	if len(products) == 0 {
		return failure("There are no products to delete")
	}

	// Wiping a large catalog is irreversible; anything over the
	// threshold requires an explicit confirm action.
	if len(products) > bulkConfirmThreshold {
		session.SetBulkDelete(PendingBulkDelete{
			ProductCount: len(products),
			CreatedAt:    a.now(),
		})
		return Result{
			Success:           true,
			Message:           fmt.Sprintf("Delete ALL %d products? This cannot be undone.", len(products)),
			Operation:         OpBulkDeleteAll,
			NeedsConfirmation: true,
		}
	}

	deleted, err := a.backend.BulkDeleteAll(ctx, a.shop.ShopID)
	if err != nil {
		a.logger.Error("Bulk delete all via AI failed", zap.Error(err))
		return failure("Could not delete the products")
	}

	return Result{
		Success:   true,
		Message:   fmt.Sprintf("Deleted all products: %d", deleted),
		Operation: OpBulkDeleteAll,
	}
}

func (a *Assistant) handleBulkDeleteByNames(ctx context.Context, args BulkDeleteByNamesArgs, products []models.Product) Result {
	names := args.ProductNames
	// The model occasionally hands back one comma-joined string; split it
	// locally instead of failing.
	if len(names) == 1 {
		names = ExtractProductNames(names[0])
	}
	if len(names) == 0 {
		return failure("Please specify the product names.")
	}

	var productIDs []int64
	var notFound []string
	for _, name := range names {
		nameLower := strings.ToLower(name)
		found := false
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), nameLower) {
				productIDs = append(productIDs, p.ID)
				found = true
				break
			}
		}
		if !found {
			notFound = append(notFound, name)
		}
	}

	if len(productIDs) == 0 {
		return failure(fmt.Sprintf("None of the products were found: %s", strings.Join(names, ", ")))
	}

	deleted, err := a.backend.BulkDeleteByIDs(ctx, a.shop.ShopID, productIDs)
	if err != nil {
		a.logger.Error("Bulk delete by names via AI failed", zap.Error(err))
		return failure("Could not delete the products")
	}

	message := fmt.Sprintf("Deleted products: %d", deleted)
	if len(notFound) > 0 {
		message += fmt.Sprintf("\nNot found: %s", strings.Join(notFound, ", "))
	}
	return Result{Success: true, Message: message, Operation: OpBulkDeleteByNames}
}

func (a *Assistant) handleRecordSale(ctx context.Context, session *Session, args RecordSaleArgs, products []models.Product) Result {
	quantity := args.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return failure("The quantity must be greater than 0")
	}

	product, options, fail := resolveByName(args.ProductName, products)
	if product == nil && options == nil {
		return fail
	}

	if options != nil {
		session.SetClarification(PendingClarification{
			Operation: OpRecordSale,
			Options:   options,
			Sale:      &RecordSaleArgs{ProductName: args.ProductName, Quantity: quantity},
			CreatedAt: a.now(),
		})
		return Result{
			Message:            fmt.Sprintf("Found several products matching %q:", args.ProductName),
			Operation:          OpRecordSale,
			NeedsClarification: true,
			Options:            options,
		}
	}

	return a.applySale(ctx, *product, quantity)
}

func (a *Assistant) applySale(ctx context.Context, product models.Product, quantity int) Result {
	if product.StockQuantity < quantity {
		return failure(fmt.Sprintf("Not enough stock\nRequested: %d\nAvailable: %d",
			quantity, product.StockQuantity))
	}

	newStock := product.StockQuantity - quantity
	updated, err := a.backend.UpdateProduct(ctx, product.ID, backend.ProductUpdate{
		StockQuantity: &newStock,
	})
	if err != nil {
		a.logger.Error("Record sale via AI failed", zap.Error(err))
		return failure("Could not record the sale")
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Sale recorded: %s\nSold: %d\nRemaining: %d",
			product.Name, quantity, newStock),
		Data:      updated,
		Operation: OpRecordSale,
	}
}

func (a *Assistant) handleGetProductInfo(session *Session, args GetProductInfoArgs, products []models.Product) Result {
	product, options, fail := resolveByName(args.ProductName, products)
	if product == nil && options == nil {
		return fail
	}

	if options != nil {
		session.SetClarification(PendingClarification{
			Operation: OpGetProductInfo,
			Options:   options,
			CreatedAt: a.now(),
		})
		return Result{
			Message:            fmt.Sprintf("Found several products matching %q:", args.ProductName),
			Operation:          OpGetProductInfo,
			NeedsClarification: true,
			Options:            options,
		}
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("%s\nPrice: $%.2f\nIn stock: %d",
			product.Name, product.Price, product.StockQuantity),
		Data:      product,
		Operation: OpGetProductInfo,
	}
}

func (a *Assistant) handleBulkUpdatePrices(session *Session, args BulkUpdatePricesArgs, products []models.Product) Result {
	if args.Percentage < 0.1 || args.Percentage > 100 {
		return failure("The percentage must be between 0.1 and 100")
	}
	if args.Operation != "increase" && args.Operation != "decrease" {
		return failure(`The operation must be "increase" or "decrease"`)
	}
	if len(products) == 0 {
		return failure("There are no products to reprice")
	}

	multiplier := 1 + args.Percentage/100
	sign := "+"
	verb := "increase"
	if args.Operation == "decrease" {
		multiplier = 1 - args.Percentage/100
		sign = "-"
		verb = "discount"
	}

	previewCount := min(len(products), 3)
	var preview []string
	for _, p := range products[:previewCount] {
		preview = append(preview, fmt.Sprintf("- %s: $%.2f -> $%.2f",
			p.Name, p.Price, roundPrice(p.Price*multiplier)))
	}

	session.SetBulkUpdate(PendingBulkUpdate{
		Percentage:   args.Percentage,
		Direction:    args.Operation,
		Multiplier:   multiplier,
		ProductCount: len(products),
		CreatedAt:    a.now(),
	})

	message := fmt.Sprintf("Apply %s %s%.4g%% to all %d products?\n\nExample changes:\n%s",
		verb, sign, args.Percentage, len(products), strings.Join(preview, "\n"))
	if len(products) > previewCount {
		message += fmt.Sprintf("\n... and %d more products", len(products)-previewCount)
	}

	return Result{
		Success:           true,
		Message:           message,
		Operation:         OpBulkUpdatePrices,
		NeedsConfirmation: true,
	}
}

// ConfirmBulkPriceUpdate executes a previously staged bulk repricing. The
// product list is re-fetched so the operation never acts on stale data.
// Updates run in batches of bulkBatchSize concurrent calls; batches
// themselves run sequentially.
func (a *Assistant) ConfirmBulkPriceUpdate(ctx context.Context, chatID int64, progress ProgressFunc) Result {
	session := a.sessions.Get(chatID)
	pending, ok := session.TakeBulkUpdate()
	if !ok {
		return failure("The operation has expired. Try again.")
	}

	products, err := a.backend.ListProducts(ctx, a.shop.ShopID)
	if err != nil {
		a.logger.Error("Bulk price update fetch failed", zap.Error(err))
		return failure("Could not update the prices")
	}
	if len(products) == 0 {
		return failure("There are no products to reprice")
	}

	type priceDiff struct {
		name     string
		oldPrice float64
		newPrice float64
	}

	var (
		mu        sync.Mutex
		diffs     []priceDiff
		failCount int
	)

	for batchStart := 0; batchStart < len(products); batchStart += bulkBatchSize {
		if progress != nil && batchStart > 0 {
			progress(fmt.Sprintf("Updating prices...\nProcessed: %d/%d products", batchStart, len(products)))
		}

		batchEnd := min(batchStart+bulkBatchSize, len(products))

		var wg sync.WaitGroup
		for _, product := range products[batchStart:batchEnd] {
			wg.Add(1)
			go func(p models.Product) {
				defer wg.Done()

				newPrice := roundPrice(p.Price * pending.Multiplier)
				if newPrice <= 0 {
					mu.Lock()
					failCount++
					mu.Unlock()
					return
				}

				if _, err := a.backend.UpdateProduct(ctx, p.ID, backend.ProductUpdate{Price: &newPrice}); err != nil {
					a.logger.Error("Failed to update product price",
						zap.Int64("product_id", p.ID),
						zap.Error(err),
					)
					mu.Lock()
					failCount++
					mu.Unlock()
					return
				}

				mu.Lock()
				diffs = append(diffs, priceDiff{name: p.Name, oldPrice: p.Price, newPrice: newPrice})
				mu.Unlock()
			}(product)
		}
		wg.Wait()
	}

	if len(diffs) == 0 {
		return failure("Could not update any product")
	}

	sign := "+"
	verb := "Increase"
	if pending.Direction == "decrease" {
		sign = "-"
		verb = "Discount"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s%.4g%% applied\n", verb, sign, pending.Percentage)
	fmt.Fprintf(&sb, "Updated products: %d/%d\n\n", len(diffs), len(products))

	for _, d := range diffs[:min(len(diffs), 5)] {
		name := d.name
		if len([]rune(name)) > 40 {
			name = string([]rune(name)[:37]) + "..."
		}
		fmt.Fprintf(&sb, "- %s: $%.2f -> $%.2f\n", name, d.oldPrice, d.newPrice)
	}
	if len(diffs) > 5 {
		fmt.Fprintf(&sb, "... and %d more products\n", len(diffs)-5)
	}
	if failCount > 0 {
		fmt.Fprintf(&sb, "\nFailed to update: %d products", failCount)
	}

	return Result{
		Success:   true,
		Message:   strings.TrimRight(sb.String(), "\n"),
		Operation: OpBulkUpdatePrices,
	}
}

// ConfirmBulkDeleteAll executes a previously staged catalog wipe.
func (a *Assistant) ConfirmBulkDeleteAll(ctx context.Context, chatID int64) Result {
	session := a.sessions.Get(chatID)
	if _, ok := session.TakeBulkDelete(); !ok {
		return failure("The operation has expired. Try again.")
	}

	deleted, err := a.backend.BulkDeleteAll(ctx, a.shop.ShopID)
	if err != nil {
		a.logger.Error("Bulk delete all failed", zap.Error(err))
		return failure("Could not delete the products")
	}

	return Result{
		Success:   true,
		Message:   fmt.Sprintf("Deleted all products: %d", deleted),
		Operation: OpBulkDeleteAll,
	}
}

// ResolveClarification executes the deferred operation for the product
// the user selected from a clarification keyboard.
func (a *Assistant) ResolveClarification(ctx context.Context, chatID, productID int64) Result {
	session := a.sessions.Get(chatID)
	pending, ok := session.TakeClarification()
	if !ok {
		return failure("The operation has expired. Try again.")
	}

	var selected *ClarifyOption
	for i := range pending.Options {
		if pending.Options[i].ID == productID {
			selected = &pending.Options[i]
			break
		}
	}
	if selected == nil {
		return failure("Product not found")
	}

	switch pending.Operation {
	case OpDeleteProduct:
		if err := a.backend.DeleteProduct(ctx, selected.ID); err != nil {
			a.logger.Error("Clarified delete failed", zap.Error(err))
			return failure("Could not delete the product")
		}
		return Result{
			Success:   true,
			Message:   fmt.Sprintf("Deleted: %s ($%.2f)", selected.Name, selected.Price),
			Operation: OpDeleteProduct,
		}

	case OpUpdateProduct:
		if pending.Update == nil {
			return failure("The operation has expired. Try again.")
		}
		product, ok := a.fetchProduct(ctx, selected.ID)
		if !ok {
			return failure("Could not update the product")
		}
		return a.applyProductUpdate(ctx, product, *pending.Update)

	case OpRecordSale:
		if pending.Sale == nil {
			return failure("The operation has expired. Try again.")
		}
		// Re-fetch for the current stock level; the clarification option
		// only carries id and price.
		product, ok := a.fetchProduct(ctx, selected.ID)
		if !ok {
			return failure("Could not record the sale")
		}
		return a.applySale(ctx, product, pending.Sale.Quantity)

	case OpGetProductInfo:
		product, ok := a.fetchProduct(ctx, selected.ID)
		if !ok {
			return failure("Could not load the product")
		}
		return Result{
			Success: true,
			Message: fmt.Sprintf("%s\nPrice: $%.2f\nIn stock: %d",
				product.Name, product.Price, product.StockQuantity),
			Operation: OpGetProductInfo,
		}
	}

	return failure("The operation has expired. Try again.")
}

// CancelPending drops whatever clarification or confirmation is staged
// for the chat.
func (a *Assistant) CancelPending(chatID int64) {
	a.sessions.Get(chatID).ClearPending()
}

func (a *Assistant) fetchProduct(ctx context.Context, productID int64) (models.Product, bool) {
	products, err := a.backend.ListProducts(ctx, a.shop.ShopID)
	if err != nil {
		a.logger.Error("Failed to fetch products", zap.Error(err))
		return models.Product{}, false
	}
	for _, p := range products {
		if p.ID == productID {
			return p, true
		}
	}
	return models.Product{}, false
}
