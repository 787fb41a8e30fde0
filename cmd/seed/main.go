package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/c2smotors/showroom/internal/catalog"
	"github.com/c2smotors/showroom/internal/models"
)

var brands = []struct {
	name   string
	models []string
}{
	{"Volkswagen", []string{"Gol", "Polo", "T-Cross", "Nivus"}},
	{"Chevrolet", []string{"Onix", "Tracker", "S10", "Cruze"}},
	{"Fiat", []string{"Argo", "Cronos", "Toro", "Pulse"}},
	{"Toyota", []string{"Corolla", "Yaris", "Hilux", "RAV4"}},
	{"Hyundai", []string{"HB20", "Creta", "i30", "Tucson"}},
	{"Honda", []string{"Civic", "City", "HR-V", "Fit"}},
	{"Ford", []string{"Ka", "Ranger", "Fusion", "Territory"}},
}

var (
	engines       = []string{"1.0", "1.6", "2.0", "1.0 TSI", "1.5 Turbo", "Elétrico 150kW"}
	fuels         = []string{"gasolina", "alcool", "diesel", "flex", "eletrico", "hibrido"}
	transmissions = []string{"manual", "automatica", "cvt"}
	bodyTypes     = []string{"hatch", "sedan", "suv", "pickup", "coupe", "wagon"}
	colors        = []string{"preto", "branco", "prata", "cinza", "azul", "vermelho"}
)

// Real VINs never use I, O or Q.
const vinChars = "ABCDEFGHJKLMNPRSTUVWXYZ0123456789"

func randomVIN() string {
	var sb strings.Builder
	for i := 0; i < 17; i++ {
		sb.WriteByte(vinChars[rand.Intn(len(vinChars))])
	}
	return sb.String()
}

func randomVehicle() models.Vehicle {
	b := brands[rand.Intn(len(brands))]
	return models.Vehicle{
		Brand:        b.name,
		Model:        b.models[rand.Intn(len(b.models))],
		Year:         2005 + rand.Intn(21),
		Engine:       engines[rand.Intn(len(engines))],
		FuelType:     fuels[rand.Intn(len(fuels))],
		Color:        colors[rand.Intn(len(colors))],
		MileageKM:    rand.Intn(200_001),
		Doors:        []int{2, 4}[rand.Intn(2)],
		Transmission: transmissions[rand.Intn(len(transmissions))],
		BodyType:     bodyTypes[rand.Intn(len(bodyTypes))],
		Price:        35_000 + rand.Float64()*315_000,
		VIN:          randomVIN(),
	}
}

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", "showroom.db", "path to the catalog database")
	n := flag.Int("n", 100, "number of vehicles to create")
	batch := flag.Int("batch", 10, "vehicles per generation call in -ai mode")
	ai := flag.Bool("ai", false, "generate vehicles with an LLM instead of randomly")
	model := flag.String("model", os.Getenv("OPENAI_MODEL"), "OpenAI model for -ai mode")
	flag.Parse()

	store, err := catalog.NewStore(*dbPath)
	if err != nil {
		log.Fatal(fmt.Errorf("error opening catalog store: %w", err))
	}
	defer store.Close()

	ctx := context.Background()

	var created int
	if *ai {
		created, err = seedAI(ctx, store, *n, *batch, *model)
	} else {
		created, err = seedRandom(ctx, store, *n)
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Veículos criados: %d", created)
}

func seedRandom(ctx context.Context, store *catalog.Store, n int) (int, error) {
	created := 0
	for created < n {
		v := randomVehicle()
		if err := store.AddVehicle(ctx, v); err != nil {
			// VIN collision: roll a new one and try again.
			continue
		}
		created++
	}
	return created, nil
}

const generatorSystemPrompt = "Você é um gerador confiável de dados automotivos. " +
	"Responda APENAS com JSON válido. " +
	"Esquema: objeto com chaves [brand, model, year, engine, fuel_type, color, mileage_km, doors, " +
	"transmission, body_type, price, vin] OU um array desses objetos. " +
	"Regras: year entre 1995 e 2025; fuel_type em ['gasolina','alcool','diesel','flex','eletrico','hibrido']; " +
	"doors em [2,4,5]; transmission em ['manual','automatica','cvt']; body_type em " +
	"['hatch','sedan','suv','pickup','coupe','wagon']; price decimal (2 casas); " +
	"vin: 17 caracteres A-Z/0-9 SEM I,O,Q. Sem comentários, sem markdown."

func seedAI(ctx context.Context, store *catalog.Store, n, batch int, model string) (int, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return 0, fmt.Errorf("OPENAI_API_KEY is required for -ai mode")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := goopenai.NewClient(apiKey)

	created := 0
	for created < n {
		toCreate := batch
		if remaining := n - created; remaining < toCreate {
			toCreate = remaining
		}

		text, err := generateBatch(ctx, client, model, toCreate)
		if err != nil {
			return created, fmt.Errorf("generation call failed: %w", err)
		}

		vehicles, err := parseVehicleJSON(text)
		if err != nil {
			return created, fmt.Errorf("failed to parse generated JSON: %w (resposta: %.300s)", err, text)
		}

		for _, v := range vehicles {
			v.VIN = sanitizeVIN(v.VIN)
			for {
				err := store.AddVehicle(ctx, v)
				if err == nil {
					break
				}
				v.VIN = randomVIN()
			}
			created++
		}
		log.Printf("Batch criado: %d (total=%d/%d)", len(vehicles), created, n)
		time.Sleep(400 * time.Millisecond)
	}
	return created, nil
}

func generateBatch(ctx context.Context, client *goopenai.Client, model string, n int) (string, error) {
	var lastErr error
	backoff := time.Second
	for try := 0; try < 4; try++ {
		resp, err := client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:       model,
			Temperature: 0.6,
			MaxTokens:   2000,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleSystem, Content: generatorSystemPrompt},
				{
					Role:    goopenai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Gere uma lista JSON de %d veículos seguindo fielmente o esquema.", n),
				},
			},
		})
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("chat completion returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err
		time.Sleep(backoff + time.Duration(rand.Int63n(int64(time.Second))))
		backoff *= 2
	}
	return "", lastErr
}

var codeBlockRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// parseVehicleJSON accepts a bare object, an array, or either wrapped in a
// markdown code fence, and tolerates prose around the JSON.
func parseVehicleJSON(text string) ([]models.Vehicle, error) {
	text = strings.TrimSpace(text)

	if m := codeBlockRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	} else if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
		start := strings.IndexAny(text, "{[")
		end := strings.LastIndexAny(text, "}]")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("resposta não contém JSON")
		}
		text = strings.TrimSpace(text[start : end+1])
	}

	if strings.HasPrefix(text, "{") {
		var v models.Vehicle
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, err
		}
		return []models.Vehicle{v}, nil
	}

	var vehicles []models.Vehicle
	if err := json.Unmarshal([]byte(text), &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// sanitizeVIN strips characters outside the VIN alphabet and pads or rerolls
// to the 17-character length.
func sanitizeVIN(vin string) string {
	vin = strings.ToUpper(vin)
	var sb strings.Builder
	for _, c := range vin {
		if strings.ContainsRune(vinChars, c) {
			sb.WriteRune(c)
		}
		if sb.Len() == 17 {
			break
		}
	}
	out := sb.String()
	if len(out) < 17 {
		out += randomVIN()[:17-len(out)]
	}
	return out
}
