package document

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/storacha/go-didauth/canonical"
)

var versionPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   multihash.SHA2_256,
	MhLength: -1,
}

// VersionID computes a content identifier over the canonical JSON form of the
// document. Equal documents have equal version ids regardless of member order.
func VersionID(doc *Document) (string, error) {
	b, err := canonical.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("canonicalizing document: %w", err)
	}
	c, err := versionPrefix.Sum(b)
	if err != nil {
		return "", fmt.Errorf("hashing document: %w", err)
	}
	return c.String(), nil
}
