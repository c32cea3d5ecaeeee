package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/kar69-96/agentpay/internal/core/domain"
)

var stdinReader = bufio.NewReader(os.Stdin)

func promptLine(label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := stdinReader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo on a terminal, falling back to a plain
// line for pipes.
func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := stdinReader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptNewPassphrase() (string, error) {
	passphrase, err := promptPassword("Choose a vault passphrase")
	if err != nil {
		return "", err
	}
	if len(passphrase) < 8 {
		return "", fmt.Errorf("passphrase must be at least 8 characters")
	}
	confirm, err := promptPassword("Confirm passphrase")
	if err != nil {
		return "", err
	}
	if passphrase != confirm {
		return "", fmt.Errorf("passphrases do not match")
	}
	return passphrase, nil
}

func promptAddress(kind string) (domain.Address, error) {
	var addr domain.Address
	var err error
	if addr.Street, err = promptLine(kind + " street"); err != nil {
		return addr, err
	}
	if addr.City, err = promptLine(kind + " city"); err != nil {
		return addr, err
	}
	if addr.State, err = promptLine(kind + " state"); err != nil {
		return addr, err
	}
	if addr.Zip, err = promptLine(kind + " zip"); err != nil {
		return addr, err
	}
	if addr.Country, err = promptLine(kind + " country"); err != nil {
		return addr, err
	}
	return addr, nil
}

func promptCredentials() (*domain.BillingCredentials, error) {
	var creds domain.BillingCredentials
	var err error

	if creds.Name, err = promptLine("Cardholder name"); err != nil {
		return nil, err
	}
	if creds.Card.Number, err = promptLine("Card number"); err != nil {
		return nil, err
	}
	if creds.Card.Expiry, err = promptLine("Expiry (MM/YY)"); err != nil {
		return nil, err
	}
	if creds.Card.CVV, err = promptPassword("CVV"); err != nil {
		return nil, err
	}
	if creds.Email, err = promptLine("Email"); err != nil {
		return nil, err
	}
	if creds.Phone, err = promptLine("Phone"); err != nil {
		return nil, err
	}
	if creds.BillingAddress, err = promptAddress("Billing"); err != nil {
		return nil, err
	}

	same, err := promptLine("Shipping address same as billing? [Y/n]")
	if err != nil {
		return nil, err
	}
	if same == "" || strings.EqualFold(same, "y") || strings.EqualFold(same, "yes") {
		creds.ShippingAddress = creds.BillingAddress
	} else if creds.ShippingAddress, err = promptAddress("Shipping"); err != nil {
		return nil, err
	}

	return &creds, nil
}

func confirm(question string) (bool, error) {
	answer, err := promptLine(question + " [y/N]")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
}
