// Package event implements the signed-event substrate the messenger is
// built on: a generic event structure with a content-derived identifier,
// Schnorr signatures over that identifier, and the subscription filters
// understood by relays.
//
// Events are deliberately generic. The messaging layers (rumor, seal, gift
// wrap) are specializations distinguished only by their Kind.
package event
