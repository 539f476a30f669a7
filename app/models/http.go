package models

// Request DTOs bound and validated at the HTTP boundary before any quota or
// cache work begins.

type AnalyzeDeckRequest struct {
	DeckList     []string `json:"deckList" binding:"required,min=1,max=80,dive,min=1,max=100"`
	CardIDs      []int64  `json:"cardIds" binding:"required,min=1,max=80,dive,gt=0"`
	ForceRefresh bool     `json:"forceRefresh"`
}

type AnalyzeCardRequest struct {
	CardName string `json:"cardName" binding:"required,min=1,max=100"`
}

type AnalyzeHandRequest struct {
	HandCards []string `json:"handCards" binding:"required,len=5,dive,min=1,max=100"`
	DeckList  []string `json:"deckList" binding:"required,min=1,max=80,dive,min=1,max=100"`
}

type FeedbackRequest struct {
	DeckHash string `json:"deckHash" binding:"required,min=10,max=128"`
	Vote     string `json:"vote" binding:"required,oneof=accurate inaccurate"`
	Reason   string `json:"reason" binding:"required,min=5,max=500"`
}
