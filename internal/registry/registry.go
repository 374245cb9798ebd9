// Package registry maps one pool per variable asset and holds the
// trusted treasury linkage the pools flush protocol fees to.
package registry

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"launchpool/internal/pool"
)

var (
	ErrPoolExists      = errors.New("registry: pool already exists for asset")
	ErrPoolNotFound    = errors.New("registry: no pool for asset")
	ErrNotPool         = errors.New("registry: only the pool itself may remove its entry")
	ErrInvalidTreasury = errors.New("registry: treasury address required")
)

// Registry is the pool directory. It implements pool.Registry.
type Registry struct {
	mu             sync.RWMutex
	treasury       common.Address
	minCollectable *big.Int
	pools          map[common.Address]*pool.Pool
}

func New(treasury common.Address, minimumCollectableFees *big.Int) (*Registry, error) {
	if treasury == (common.Address{}) {
		return nil, ErrInvalidTreasury
	}
	if minimumCollectableFees == nil {
		minimumCollectableFees = new(big.Int)
	}
	return &Registry{
		treasury:       treasury,
		minCollectable: new(big.Int).Set(minimumCollectableFees),
		pools:          make(map[common.Address]*pool.Pool),
	}, nil
}

// Treasury returns the protocol fee recipient.
func (r *Registry) Treasury() common.Address {
	return r.treasury
}

// MinimumCollectableFees returns the flush threshold for pending
// protocol fees.
func (r *Registry) MinimumCollectableFees() *big.Int {
	return new(big.Int).Set(r.minCollectable)
}

// CreatePool registers a new pool for a variable asset. The pool address
// is derived from the asset pair so it is stable across runs.
func (r *Registry) CreatePool(quoteAddr, variableAddr common.Address, quoteAsset, variableAsset pool.Asset, params pool.LaunchParams, cfg pool.Config) (*pool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pools[variableAddr]; ok {
		return nil, ErrPoolExists
	}
	addr := PoolAddress(quoteAddr, variableAddr)
	p, err := pool.New(addr, variableAddr, quoteAsset, variableAsset, r, params, cfg)
	if err != nil {
		return nil, err
	}
	r.pools[variableAddr] = p
	return p, nil
}

// GetPool returns the pool for a variable asset.
func (r *Registry) GetPool(variableAddr common.Address) (*pool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[variableAddr]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// RemovePool deletes a pool's entry; only the pool itself may call this,
// which it does when excess-token recovery finds nothing raised.
func (r *Registry) RemovePool(caller, variableAddr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[variableAddr]
	if !ok {
		return ErrPoolNotFound
	}
	if caller != p.Address() {
		return ErrNotPool
	}
	delete(r.pools, variableAddr)
	return nil
}

// PoolAddress derives the deterministic pool address for an asset pair.
func PoolAddress(quoteAddr, variableAddr common.Address) common.Address {
	return common.BytesToAddress(crypto.Keccak256(quoteAddr.Bytes(), variableAddr.Bytes())[12:])
}
