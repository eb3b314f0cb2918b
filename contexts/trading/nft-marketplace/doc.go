// Package nftmarketplace contains the emporium implementation of the fixed-price
// NFT marketplace: listings keyed by (collection, token id), exact-price purchases
// with a platform fee, and administrator fee withdrawal.
//
// The module keeps domain/application logic decoupled from runtime/platform
// concerns through ports and adapter composition.
package nftmarketplace
