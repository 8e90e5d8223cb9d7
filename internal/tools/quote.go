package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/forcebridge/forcebridge/internal/salesforce"
	"github.com/forcebridge/forcebridge/pkg/models"
)

// opportunityIDPrefix is the Salesforce key prefix for Opportunity records.
const opportunityIDPrefix = "006"

// CreateQuoteFromOpportunity runs the five-stage quote workflow:
//
//  1. validate the opportunity id
//  2. fetch the opportunity with its account and pricebook
//  3. create the Quote
//  4. resolve account display fields
//  5. create quote lines from the opportunity line items
//
// It never returns an error: every failure ends up in the result's
// errorMessage, with all fields populated by earlier stages preserved. A
// Quote created in stage 3 is not deleted when a later stage fails, and
// nothing deduplicates repeat calls — two invocations create two Quotes.
func (s *Service) CreateQuoteFromOpportunity(ctx context.Context, opportunityID string) *models.WorkflowResult {
	result := models.NewWorkflowResult()
	if err := s.buildQuote(ctx, opportunityID, result); err != nil {
		result.SetError(err.Error())
		log.Error().Err(err).Str("opportunity_id", opportunityID).Msg("quote workflow failed")
	}
	return result
}

func (s *Service) buildQuote(ctx context.Context, opportunityID string, result *models.WorkflowResult) error {
	// Stage 1: validate input. No CRM calls happen past a bad id.
	if opportunityID == "" {
		return &salesforce.ValidationError{Msg: "Opportunity Id is required"}
	}
	if s.strictIDCheck && !strings.HasPrefix(opportunityID, opportunityIDPrefix) {
		return &salesforce.ValidationError{
			Msg: fmt.Sprintf("Invalid Opportunity ID format: %s. Must start with '006'", opportunityID),
		}
	}

	// Stage 2: fetch the opportunity joined with account and pricebook.
	log.Info().Str("opportunity_id", opportunityID).Msg("fetching opportunity")
	oppQuery := fmt.Sprintf(
		"SELECT Id, Name, AccountId, Account.Name, Account.Phone, Account.Industry, Pricebook2Id "+
			"FROM Opportunity WHERE Id = '%s' LIMIT 1",
		salesforce.QuoteSOQLString(opportunityID))
	oppRecords, err := s.crm.Query(ctx, oppQuery)
	if err != nil {
		return err
	}
	if len(oppRecords) == 0 {
		return &salesforce.NotFoundError{
			Msg: fmt.Sprintf("Opportunity with Id %s not found", opportunityID),
		}
	}
	opp := oppRecords[0]
	if opp.Str("Pricebook2Id") == "" {
		return &salesforce.PreconditionError{Msg: "Opportunity must have a Pricebook"}
	}

	// Stage 3: create the Quote. From here on quoteId, opportunityId and
	// opportunityName stay populated whatever happens next.
	quoteName := opp.Str("Name") + " - Quote"
	log.Info().Str("quote_name", quoteName).Msg("creating quote")
	quoteID, err := s.crm.Create(ctx, "Quote", map[string]interface{}{
		"Name":          quoteName,
		"OpportunityId": opp.Str("Id"),
		"Pricebook2Id":  opp.Str("Pricebook2Id"),
	})
	if err != nil {
		return err
	}
	log.Info().Str("quote_id", quoteID).Msg("quote created")

	result.QuoteID = strPtr(quoteID)
	result.OpportunityID = strPtr(opp.Str("Id"))
	result.OpportunityName = strPtr(opp.Str("Name"))

	// Stage 4: account fields, from the join when it came back embedded,
	// otherwise via a secondary lookup whose failure is logged and
	// swallowed; the quote itself is already the deliverable.
	s.resolveAccount(ctx, opp, result)

	// Stage 5: quote lines.
	return s.createQuoteLines(ctx, opp.Str("Id"), quoteID, result)
}

func (s *Service) resolveAccount(ctx context.Context, opp salesforce.Record, result *models.WorkflowResult) {
	if account := opp.Child("Account"); account != nil {
		id := account.Str("Id")
		if id == "" {
			id = opp.Str("AccountId")
		}
		result.AccountID = optStr(id)
		result.AccountName = optStr(account.Str("Name"))
		result.AccountPhone = optStr(account.Str("Phone"))
		result.AccountIndustry = optStr(account.Str("Industry"))
		return
	}

	accountID := opp.Str("AccountId")
	result.AccountID = optStr(accountID)
	if accountID == "" {
		return
	}

	accQuery := fmt.Sprintf("SELECT Id, Name, Phone, Industry FROM Account WHERE Id = '%s' LIMIT 1",
		salesforce.QuoteSOQLString(accountID))
	records, err := s.crm.Query(ctx, accQuery)
	if err != nil {
		log.Warn().Err(err).Str("account_id", accountID).Msg("could not fetch account details")
		return
	}
	if len(records) > 0 {
		acc := records[0]
		result.AccountName = optStr(acc.Str("Name"))
		result.AccountPhone = optStr(acc.Str("Phone"))
		result.AccountIndustry = optStr(acc.Str("Industry"))
	}
}

func (s *Service) createQuoteLines(ctx context.Context, opportunityID, quoteID string, result *models.WorkflowResult) error {
	oliQuery := fmt.Sprintf(
		"SELECT Id, Quantity, UnitPrice, PricebookEntryId, PricebookEntry.UnitPrice, Product2.SKU__c "+
			"FROM OpportunityLineItem WHERE OpportunityId = '%s'",
		salesforce.QuoteSOQLString(opportunityID))
	lines, err := s.crm.Query(ctx, oliQuery)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		log.Info().Msg("no opportunity line items found")
		return nil
	}
	log.Info().Int("count", len(lines)).Msg("found opportunity line items")

	created := 0
	responses := []models.QuoteLine{}
	for _, oli := range lines {
		pricebookEntryID := oli.Str("PricebookEntryId")
		if pricebookEntryID == "" {
			log.Warn().Str("oli_id", oli.Str("Id")).Msg("line item has no PricebookEntryId, skipping")
			continue
		}

		quantity, _ := oli.Num("Quantity")
		salesPrice, _ := oli.Num("UnitPrice")

		if _, err := s.crm.Create(ctx, "QuoteLineItem", map[string]interface{}{
			"QuoteId":          quoteID,
			"PricebookEntryId": pricebookEntryID,
			"Quantity":         quantity,
			"UnitPrice":        salesPrice,
		}); err != nil {
			return err
		}
		created++

		line := models.QuoteLine{
			SalesPrice: optNum(salesPrice),
			Quantity:   optNum(quantity),
		}
		if entry := oli.Child("PricebookEntry"); entry != nil {
			if listPrice, ok := entry.Num("UnitPrice"); ok {
				line.ListPrice = optNum(listPrice)
			}
		}
		if product := oli.Child("Product2"); product != nil {
			line.SKUID = optStr(product.Str("SKU__c"))
		}
		responses = append(responses, line)
	}

	result.QuoteLineCount = created
	result.QuoteLines = responses
	log.Info().Int("count", created).Msg("created quote line items")
	return nil
}

func strPtr(s string) *string { return &s }

// optStr maps "" to nil, matching the response contract where an empty
// source value reads as absent.
func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optNum maps 0 to nil. Zero and missing are indistinguishable in the
// response; existing clients rely on this.
func optNum(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
