package agent

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/solagent/solagent-go/pkg/pointer"
	"github.com/solagent/solagent-go/pkg/solana"
	"github.com/solagent/solagent-go/pkg/solana/metaplex"
	"github.com/solagent/solagent-go/pkg/solana/system"
	"github.com/solagent/solagent-go/pkg/solana/token"
)

// DeploymentResult pairs a newly created mint with the transaction creating
// it.
type DeploymentResult struct {
	Mint      ed25519.PublicKey
	Signature solana.Signature
}

type DeployTokenRequest struct {
	Name     string
	Symbol   string
	Uri      string
	Decimals byte

	// InitialSupply is minted to the wallet, in base units. Zero mints
	// nothing.
	InitialSupply uint64

	// TokenProgram defaults to the original token program.
	TokenProgram ed25519.PublicKey
}

// DeployToken creates a fungible token with metadata in a single transaction,
// minting any initial supply to the wallet's associated account.
func (a *Agent) DeployToken(ctx context.Context, req *DeployTokenRequest) (*DeploymentResult, error) {
	ctx, log, end, tracer := a.invocation(ctx, "DeployToken")
	defer end()

	res, err := a.deployToken(ctx, log, req)
	return res, fail(log, tracer, err)
}

func (a *Agent) deployToken(ctx context.Context, log *logrus.Entry, req *DeployTokenRequest) (*DeploymentResult, error) {
	program := tokenProgramOrDefault(req.TokenProgram)
	if !token.IsTokenProgram(program) {
		return nil, solana.NewValidationError("token program", "%s is not a token program", base58.Encode(program))
	}

	mint, err := solana.NewKeypair()
	if err != nil {
		return nil, err
	}
	owner := a.wallet.PublicKey()

	initializeMint, err := token.InitializeMint(program, mint.PublicKey(), req.Decimals, owner, owner)
	if err != nil {
		return nil, err
	}

	metadata, err := a.createMetadataInstruction(mint.PublicKey(), metaplex.DataV2{
		Name:   req.Name,
		Symbol: req.Symbol,
		URI:    req.Uri,
	}, nil)
	if err != nil {
		return nil, err
	}

	createMint, err := a.createMintAccountInstruction(mint.PublicKey(), program)
	if err != nil {
		return nil, err
	}

	instructions := []solana.Instruction{createMint, initializeMint, metadata}

	if req.InitialSupply > 0 {
		createAta, ata, err := token.CreateAssociatedTokenAccount(owner, owner, mint.PublicKey(), program)
		if err != nil {
			return nil, err
		}
		instructions = append(
			instructions,
			createAta,
			token.MintTo(program, mint.PublicKey(), ata, owner, req.InitialSupply),
		)
	}

	sig, err := a.pipeline.SubmitInstructions(ctx, instructions, mint)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"mint":      base58.Encode(mint.PublicKey()),
		"signature": sig.String(),
	}).Info("token deployed")

	return &DeploymentResult{Mint: mint.PublicKey(), Signature: sig}, nil
}

type DeployCollectionRequest struct {
	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16

	// Creators defaults to the wallet, verified, with the full share.
	Creators []metaplex.Creator
}

// DeployCollection creates a sized collection NFT held by the wallet. Items
// are added to it with MintNFT.
func (a *Agent) DeployCollection(ctx context.Context, req *DeployCollectionRequest) (*DeploymentResult, error) {
	ctx, log, end, tracer := a.invocation(ctx, "DeployCollection")
	defer end()

	res, err := a.deployCollection(ctx, log, req)
	return res, fail(log, tracer, err)
}

func (a *Agent) deployCollection(ctx context.Context, log *logrus.Entry, req *DeployCollectionRequest) (*DeploymentResult, error) {
	mint, err := solana.NewKeypair()
	if err != nil {
		return nil, err
	}

	instructions, err := a.nftInstructions(mint.PublicKey(), a.wallet.PublicKey(), metaplex.DataV2{
		Name:                 req.Name,
		Symbol:               req.Symbol,
		URI:                  req.Uri,
		SellerFeeBasisPoints: req.SellerFeeBasisPoints,
		Creators:             a.creatorsOrDefault(req.Creators),
	}, &metaplex.CollectionDetails{Size: 0}, pointer.Uint64(0))
	if err != nil {
		return nil, err
	}

	sig, err := a.pipeline.SubmitInstructions(ctx, instructions, mint)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"mint":      base58.Encode(mint.PublicKey()),
		"signature": sig.String(),
	}).Info("collection deployed")

	return &DeploymentResult{Mint: mint.PublicKey(), Signature: sig}, nil
}

type MintNFTRequest struct {
	// Collection is the mint of a collection whose update authority is the
	// wallet.
	Collection ed25519.PublicKey

	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16

	// Creators defaults to the wallet, verified, with the full share.
	Creators []metaplex.Creator

	// Recipient defaults to the wallet.
	Recipient ed25519.PublicKey

	// UnsizedCollection selects verification for collections created
	// without a size.
	UnsizedCollection bool
}

// MintNFT mints a single edition NFT into an existing collection, verifying
// its membership in the same transaction.
func (a *Agent) MintNFT(ctx context.Context, req *MintNFTRequest) (*DeploymentResult, error) {
	ctx, log, end, tracer := a.invocation(ctx, "MintNFT")
	defer end()

	res, err := a.mintNFT(ctx, log, req)
	return res, fail(log, tracer, err)
}

func (a *Agent) mintNFT(ctx context.Context, log *logrus.Entry, req *MintNFTRequest) (*DeploymentResult, error) {
	if len(req.Collection) != ed25519.PublicKeySize {
		return nil, solana.NewValidationError("collection", "must be a %d byte address", ed25519.PublicKeySize)
	}

	recipient := req.Recipient
	if len(recipient) == 0 {
		recipient = a.wallet.PublicKey()
	} else if len(recipient) != ed25519.PublicKeySize {
		return nil, solana.NewValidationError("recipient", "must be a %d byte address", ed25519.PublicKeySize)
	}

	mint, err := solana.NewKeypair()
	if err != nil {
		return nil, err
	}

	instructions, err := a.nftInstructions(mint.PublicKey(), recipient, metaplex.DataV2{
		Name:                 req.Name,
		Symbol:               req.Symbol,
		URI:                  req.Uri,
		SellerFeeBasisPoints: req.SellerFeeBasisPoints,
		Creators:             a.creatorsOrDefault(req.Creators),
		Collection:           &metaplex.Collection{Key: req.Collection},
	}, nil, pointer.Uint64(1))
	if err != nil {
		return nil, err
	}

	metadataAddress, _, err := metaplex.GetMetadataAddress(mint.PublicKey())
	if err != nil {
		return nil, err
	}
	collectionMetadata, _, err := metaplex.GetMetadataAddress(req.Collection)
	if err != nil {
		return nil, err
	}
	collectionEdition, _, err := metaplex.GetMasterEditionAddress(req.Collection)
	if err != nil {
		return nil, err
	}

	verifyAccounts := &metaplex.VerifyCollectionInstructionAccounts{
		Metadata:                metadataAddress,
		CollectionAuthority:     a.wallet.PublicKey(),
		Payer:                   a.wallet.PublicKey(),
		CollectionMint:          req.Collection,
		CollectionMetadata:      collectionMetadata,
		CollectionMasterEdition: collectionEdition,
	}

	// Verification reads the item's metadata, so it must come last.
	if req.UnsizedCollection {
		instructions = append(instructions, metaplex.NewVerifyCollectionInstruction(verifyAccounts))
	} else {
		instructions = append(instructions, metaplex.NewVerifySizedCollectionItemInstruction(verifyAccounts))
	}

	sig, err := a.pipeline.SubmitInstructions(ctx, instructions, mint)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"mint":       base58.Encode(mint.PublicKey()),
		"collection": base58.Encode(req.Collection),
		"signature":  sig.String(),
	}).Info("nft minted")

	return &DeploymentResult{Mint: mint.PublicKey(), Signature: sig}, nil
}

// nftInstructions returns, in order, the instructions creating a zero decimal
// mint, minting its single token to owner, and creating its metadata and
// master edition.
func (a *Agent) nftInstructions(
	mint ed25519.PublicKey,
	owner ed25519.PublicKey,
	data metaplex.DataV2,
	collectionDetails *metaplex.CollectionDetails,
	maxSupply *uint64,
) ([]solana.Instruction, error) {
	payer := a.wallet.PublicKey()
	program := token.ProgramKey

	initializeMint, err := token.InitializeMint(program, mint, 0, payer, payer)
	if err != nil {
		return nil, err
	}

	metadata, err := a.createMetadataInstruction(mint, data, collectionDetails)
	if err != nil {
		return nil, err
	}

	metadataAddress, _, err := metaplex.GetMetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	editionAddress, _, err := metaplex.GetMasterEditionAddress(mint)
	if err != nil {
		return nil, err
	}

	masterEdition, err := metaplex.NewCreateMasterEditionV3Instruction(
		&metaplex.CreateMasterEditionV3InstructionAccounts{
			Edition:         editionAddress,
			Mint:            mint,
			UpdateAuthority: payer,
			MintAuthority:   payer,
			Payer:           payer,
			Metadata:        metadataAddress,
			TokenProgram:    program,
		},
		&metaplex.CreateMasterEditionV3InstructionArgs{MaxSupply: maxSupply},
	)
	if err != nil {
		return nil, err
	}

	createAta, ata, err := token.CreateAssociatedTokenAccount(payer, owner, mint, program)
	if err != nil {
		return nil, err
	}

	createMint, err := a.createMintAccountInstruction(mint, program)
	if err != nil {
		return nil, err
	}

	return []solana.Instruction{
		createMint,
		initializeMint,
		createAta,
		token.MintTo(program, mint, ata, payer, 1),
		metadata,
		masterEdition,
	}, nil
}

// createMintAccountInstruction funds and allocates a rent exempt mint account
// owned by program. The rent is the only network call made while building.
func (a *Agent) createMintAccountInstruction(mint, program ed25519.PublicKey) (solana.Instruction, error) {
	rent, err := a.rpc.GetMinimumBalanceForRentExemption(token.MintSize)
	if err != nil {
		return solana.Instruction{}, err
	}
	return system.CreateAccount(a.wallet.PublicKey(), mint, program, rent, token.MintSize), nil
}

func (a *Agent) createMetadataInstruction(mint ed25519.PublicKey, data metaplex.DataV2, collectionDetails *metaplex.CollectionDetails) (solana.Instruction, error) {
	metadataAddress, _, err := metaplex.GetMetadataAddress(mint)
	if err != nil {
		return solana.Instruction{}, err
	}

	payer := a.wallet.PublicKey()
	return metaplex.NewCreateMetadataAccountV3Instruction(
		&metaplex.CreateMetadataAccountV3InstructionAccounts{
			Metadata:                metadataAddress,
			Mint:                    mint,
			MintAuthority:           payer,
			Payer:                   payer,
			UpdateAuthority:         payer,
			UpdateAuthorityIsSigner: true,
		},
		&metaplex.CreateMetadataAccountV3InstructionArgs{
			Data:              data,
			IsMutable:         true,
			CollectionDetails: collectionDetails,
		},
	)
}

func (a *Agent) creatorsOrDefault(creators []metaplex.Creator) []metaplex.Creator {
	if len(creators) > 0 {
		return creators
	}
	return []metaplex.Creator{{Address: a.wallet.PublicKey(), Verified: true, Share: 100}}
}

func tokenProgramOrDefault(program ed25519.PublicKey) ed25519.PublicKey {
	if len(program) == 0 {
		return token.ProgramKey
	}
	return program
}
